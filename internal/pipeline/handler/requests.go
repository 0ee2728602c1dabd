package handler

// Request/response payloads for the pipeline endpoints. Handlers stay thin:
// decode, delegate, encode.

type createCandidateRequest struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type advanceRequest struct {
	TargetStage string `json:"targetStage"`
}

type overrideRequest struct {
	TargetStage string `json:"targetStage"`
	Note        string `json:"note,omitempty"`
}

type holdRequest struct {
	Reason string `json:"reason,omitempty"`
}

type actionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type syncStateResponse struct {
	State    string `json:"state"`
	Degraded bool   `json:"degraded"`
	Count    int    `json:"count"`
}
