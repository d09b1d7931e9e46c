package dto

type TranslateRequest struct {
	Content    string `json:"content"`
	TargetLang string `json:"targetLang"`
}

type TranslateResponse struct {
	Result     string `json:"result"`
	TargetLang string `json:"targetLang"`
}
