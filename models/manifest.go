package models

// Manifest is the installable-web-app descriptor served at
// /manifest.webmanifest.
type Manifest struct {
	Name            string             `json:"name"`
	ShortName       string             `json:"short_name"`
	Description     string             `json:"description,omitempty"`
	StartURL        string             `json:"start_url"`
	Display         string             `json:"display"`
	BackgroundColor string             `json:"background_color,omitempty"`
	ThemeColor      string             `json:"theme_color,omitempty"`
	Orientation     string             `json:"orientation,omitempty"`
	Scope           string             `json:"scope,omitempty"`
	Lang            string             `json:"lang,omitempty"`
	Categories      []string           `json:"categories,omitempty"`
	Icons           []ManifestIcon     `json:"icons"`
	Shortcuts       []ManifestShortcut `json:"shortcuts,omitempty"`
}

type ManifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

type ManifestShortcut struct {
	Name        string         `json:"name"`
	ShortName   string         `json:"short_name,omitempty"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url"`
	Icons       []ManifestIcon `json:"icons,omitempty"`
}

// DefaultManifest describes the app shell: standalone display, portrait
// orientation, and navigation shortcuts into the main app areas.
func DefaultManifest(config *Config) Manifest {
	return Manifest{
		Name:            config.AppName + " - Find Your Perfect Match",
		ShortName:       "DatingApp",
		Description:     "Connect with amazing people in your area. Swipe, match, and start meaningful conversations.",
		StartURL:        "/",
		Display:         "standalone",
		BackgroundColor: "#ffffff",
		ThemeColor:      "#ec4899",
		Orientation:     "portrait-primary",
		Scope:           "/",
		Lang:            "en",
		Categories:      []string{"social", "lifestyle", "dating"},
		Icons: []ManifestIcon{
			{Src: "/icon.svg", Sizes: "any", Type: "image/svg+xml", Purpose: "any"},
			{Src: "/icon.svg", Sizes: "any", Type: "image/svg+xml", Purpose: "maskable"},
			{Src: "/favicon.ico", Sizes: "32x32", Type: "image/x-icon"},
		},
		Shortcuts: []ManifestShortcut{
			{
				Name:        "Discover Matches",
				ShortName:   "Discover",
				Description: "Find new people to match with",
				URL:         "/discover",
				Icons:       []ManifestIcon{{Src: "/icon.svg", Sizes: "any"}},
			},
			{
				Name:        "Messages",
				ShortName:   "Chat",
				Description: "View your conversations",
				URL:         "/messages",
				Icons:       []ManifestIcon{{Src: "/icon.svg", Sizes: "any"}},
			},
			{
				Name:        "Profile",
				ShortName:   "Profile",
				Description: "Edit your profile",
				URL:         "/profile",
				Icons:       []ManifestIcon{{Src: "/icon.svg", Sizes: "any"}},
			},
		},
	}
}
