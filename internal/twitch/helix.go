package twitch

import (
	"strings"

	"github.com/fastygo/overlay/domain"
)

type helixUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

type usersResponse struct {
	Data []helixUser `json:"data"`
}

type helixEmote struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Format    []string `json:"format"`
	Scale     []string `json:"scale"`
	ThemeMode []string `json:"theme_mode"`
}

type emotesResponse struct {
	Data     []helixEmote `json:"data"`
	Template string       `json:"template"`
}

type helixBadgeVersion struct {
	ID         string `json:"id"`
	ImageURL1x string `json:"image_url_1x"`
	ImageURL4x string `json:"image_url_4x"`
}

type helixBadgeSet struct {
	SetID    string              `json:"set_id"`
	Versions []helixBadgeVersion `json:"versions"`
}

type badgesResponse struct {
	Data []helixBadgeSet `json:"data"`
}

func (u helixUser) toDomain() domain.UserInfo {
	return domain.UserInfo{
		ID:              u.ID,
		Login:           u.Login,
		DisplayName:     u.DisplayName,
		ProfileImageURL: u.ProfileImageURL,
	}
}

func (r emotesResponse) toDomain() []domain.Emote {
	emotes := make([]domain.Emote, 0, len(r.Data))
	for _, e := range r.Data {
		emotes = append(emotes, domain.Emote{
			ID:    e.ID,
			Name:  e.Name,
			Image: e.image(r.Template),
		})
	}
	return emotes
}

// image renders the CDN template with the static format, the first theme and the largest scale.
func (e helixEmote) image(template string) string {
	theme, scale := "", ""
	if len(e.ThemeMode) > 0 {
		theme = e.ThemeMode[0]
	}
	if len(e.Scale) > 0 {
		scale = e.Scale[len(e.Scale)-1]
	}
	return strings.NewReplacer(
		"{{id}}", e.ID,
		"{{format}}", "default",
		"{{theme_mode}}", theme,
		"{{scale}}", scale,
	).Replace(template)
}

func (r badgesResponse) toDomain() []domain.Badge {
	badges := make([]domain.Badge, 0)
	for _, set := range r.Data {
		for _, v := range set.Versions {
			badges = append(badges, domain.Badge{
				ID:    v.ID,
				Set:   set.SetID,
				Image: v.ImageURL4x,
			})
		}
	}
	return badges
}
