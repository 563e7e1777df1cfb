package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/m-barthelemy/dating-pwa/models"
	"github.com/m-barthelemy/dating-pwa/services"
	"github.com/m-barthelemy/dating-pwa/utils"
)

// PushController exposes the push subscription and send endpoints consumed
// by the page and its service worker.
type PushController struct {
	config     *models.Config
	registry   *services.SubscriptionRegistry
	dispatcher *services.PushDispatcher
}

// New creates an instance of the controller.
func New(config *models.Config, registry *services.SubscriptionRegistry, dispatcher *services.PushDispatcher) *PushController {
	return &PushController{config: config, registry: registry, dispatcher: dispatcher}
}

type subscriptionRequest struct {
	Subscription *webpush.Subscription `json:"subscription"`
}

type sendRequest struct {
	Message      string                `json:"message"`
	Title        string                `json:"title"`
	Subscription *webpush.Subscription `json:"subscription"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetKey returns the public VAPID key the page needs to create a push
// subscription. Missing keys are a configuration error, not a crash.
func (p *PushController) GetKey(w http.ResponseWriter, r *http.Request) {
	if !p.config.PushConfigured() {
		utils.JSONResponse(w, errorResponse{Error: "push notifications are not configured"}, http.StatusServiceUnavailable)
		return
	}
	utils.JSONResponse(w, struct {
		PublicKey string `json:"publicKey"`
	}{PublicKey: p.config.VapidPublicKey}, http.StatusOK)
}

// Subscribe stores a browser push subscription. Subscribing the same
// endpoint again replaces the stored key material.
func (p *PushController) Subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.config.MaxBodySize) // Refuse request with big body

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subscription == nil || req.Subscription.Endpoint == "" {
		utils.JSONResponse(w, errorResponse{Error: "Subscription is required"}, http.StatusBadRequest)
		return
	}

	if err := p.registry.Upsert(req.Subscription); err != nil {
		log.Printf("PushController: Error saving subscription: %s", err.Error())
		utils.JSONResponse(w, errorResponse{Error: "Failed to subscribe"}, http.StatusInternalServerError)
		return
	}
	sourceIP := utils.New(p.config).GetClientIP(r)
	log.Printf("PushController: New push subscription from %s", sourceIP)
	utils.JSONResponse(w, successResponse{Success: true}, http.StatusOK)
}

// Unsubscribe removes a subscription by endpoint. Removing an unknown
// endpoint still succeeds.
func (p *PushController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.config.MaxBodySize)

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subscription == nil || req.Subscription.Endpoint == "" {
		utils.JSONResponse(w, errorResponse{Error: "Subscription is required"}, http.StatusBadRequest)
		return
	}

	if err := p.registry.Remove(req.Subscription.Endpoint); err != nil {
		log.Printf("PushController: Error removing subscription: %s", err.Error())
		utils.JSONResponse(w, errorResponse{Error: "Failed to unsubscribe"}, http.StatusInternalServerError)
		return
	}
	utils.JSONResponse(w, successResponse{Success: true}, http.StatusOK)
}

// Send relays a push message to an explicit subscription, or to the most
// recently registered one. Delivery failures come back as a structured
// result, not an HTTP fault.
func (p *PushController) Send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.config.MaxBodySize)

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONResponse(w, errorResponse{Error: "Message is required"}, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		utils.JSONResponse(w, errorResponse{Error: "Message is required"}, http.StatusBadRequest)
		return
	}

	var meta *services.DispatchMeta
	if req.Title != "" {
		meta = &services.DispatchMeta{Title: req.Title}
	}
	result := p.dispatcher.Dispatch(req.Subscription, req.Message, meta)
	utils.JSONResponse(w, result, http.StatusOK)
}
