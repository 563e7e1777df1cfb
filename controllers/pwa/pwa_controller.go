package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/m-barthelemy/dating-pwa/models"
	"github.com/m-barthelemy/dating-pwa/utils"
)

// dismissedCookie is the durable one-bit "user dismissed the install
// suggestion" flag.
const dismissedCookie = "pwa_install_dismissed"

// PWAController serves the app manifest and the installability status used
// by the landing page.
type PWAController struct {
	config *models.Config
}

// New creates an instance of the controller.
func New(config *models.Config) *PWAController {
	return &PWAController{config: config}
}

// Manifest serves the installable-web-app descriptor. It must live at the
// root scope so the service worker can control the whole origin.
func (p *PWAController) Manifest(w http.ResponseWriter, r *http.Request) {
	manifest := models.DefaultManifest(p.config)
	body, err := json.Marshal(manifest)
	if err != nil {
		log.Printf("PWAController: Error serializing manifest: %s", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/manifest+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(body)
}

// StatusResponse reports how installable the app is on the calling device.
type StatusResponse struct {
	Platform     models.Platform     `json:"platform"`
	Phase        models.InstallPhase `json:"phase"`
	Standalone   bool                `json:"standalone"`
	PushEnabled  bool                `json:"pushEnabled"`
	Instructions []string            `json:"instructions,omitempty"`
}

// Status derives the install state for the calling device. The page
// reports standalone display mode itself since only the client can see
// the display-mode media query.
func (p *PWAController) Status(w http.ResponseWriter, r *http.Request) {
	platform := models.DetectPlatform(r.UserAgent())
	standalone := r.URL.Query().Get("standalone") == "true"
	dismissed := false
	if cookie, err := r.Cookie(dismissedCookie); err == nil && cookie.Value == "1" {
		dismissed = true
	}

	state := models.NewInstallState(platform, standalone, dismissed)
	response := StatusResponse{
		Platform:    platform,
		Phase:       state.Phase(),
		Standalone:  standalone,
		PushEnabled: p.config.PushConfigured(),
	}
	if state.Phase() != models.InstallInstalled {
		response.Instructions = state.ManualInstructions()
	}
	utils.JSONResponse(w, response, http.StatusOK)
}

// Dismiss persists the user's refusal of the install suggestion.
func (p *PWAController) Dismiss(w http.ResponseWriter, r *http.Request) {
	cookie := &http.Cookie{
		Name:     dismissedCookie,
		Value:    "1",
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
	if p.config.SSLMode != "off" {
		cookie.Secure = true
	}
	http.SetCookie(w, cookie)
	utils.JSONResponse(w, struct {
		Success bool `json:"success"`
	}{Success: true}, http.StatusOK)
}
