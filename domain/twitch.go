package domain

// UserInfo is the platform identity of a user.
type UserInfo struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"displayName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Emote is a chat emote with a ready-to-use image URL.
type Emote struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Badge is a single version of a chat badge set.
type Badge struct {
	ID    string `json:"id"`
	Set   string `json:"set"`
	Image string `json:"image"`
}

// ProviderTokens are the user credentials returned by the platform's code exchange.
type ProviderTokens struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}
