package waitlist

// joinRequest is the payload of POST /join.
type joinRequest struct {
	Email          string `json:"email"`
	ProjectID      string `json:"projectId"`
	ReferrerCode   string `json:"referrerCode"`
	TurnstileToken string `json:"turnstileToken"`
}

type joinResponse struct {
	Success  bool   `json:"success"`
	RefCode  string `json:"refCode"`
	Rank     int64  `json:"rank"`
	Total    int64  `json:"total"`
	ShareURL string `json:"shareUrl"`
}

type existingUser struct {
	RefCode string `json:"refCode"`
}

type alreadyJoinedResponse struct {
	Success      bool         `json:"success"`
	Error        string       `json:"error"`
	ExistingUser existingUser `json:"existingUser"`
}

type statusResponse struct {
	Success       bool   `json:"success"`
	Rank          int64  `json:"rank"`
	Total         int64  `json:"total"`
	AheadOf       int64  `json:"aheadOf"`
	RefCode       string `json:"refCode"`
	ReferralCount int64  `json:"referralCount"`
	ShareURL      string `json:"shareUrl"`
}
