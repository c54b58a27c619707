package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"

	"handyvoice/internal/domain"
	"handyvoice/internal/providers/plivo"
	"handyvoice/internal/service"
)

type InboundRouter interface {
	RouteInboundCall(ctx context.Context, caller string) (*plivo.Response, error)
	HandleDigit(digit, handymanPhone string) *plivo.Response
}

type SurveyFlow interface {
	PlaceSurveyCall(ctx context.Context, target string) (service.PlacedCall, error)
	OnSurveyAnswered() *plivo.Response
	HandleSurveyDigit(ctx context.Context, customerPhone, digit string) *plivo.Response
}

type CallLogger interface {
	LogCall(ctx context.Context, rec domain.CallRecord)
}

// Voice serves the provider's call-control webhooks.
type Voice struct {
	Router  InboundRouter
	Surveys SurveyFlow
	Calls   CallLogger
}

func (v *Voice) Register(r *mux.Router) {
	r.HandleFunc("/incomingCall", v.handleIncomingCall).Methods(http.MethodPost)
	r.HandleFunc("/appointmentIVR/{handymanPhone}", v.handleAppointmentIVR).Methods(http.MethodPost)
	r.HandleFunc("/placeSurveyCall", v.handlePlaceSurveyCall).Methods(http.MethodPost)
	r.HandleFunc("/surveyCallAnswered", v.handleSurveyCallAnswered).Methods(http.MethodPost)
	r.HandleFunc("/surveyResult", v.handleSurveyResult).Methods(http.MethodPost)
	r.HandleFunc("/hangup", v.handleHangup).Methods(http.MethodPost)
	r.HandleFunc("/hangup/", v.handleHangup).Methods(http.MethodPost)
}

func (v *Voice) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	if err := plivo.ParseForm(r); err != nil {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}
	caller := r.FormValue("From")

	resp, err := v.Router.RouteInboundCall(r.Context(), caller)
	if err != nil {
		slog.Error("route inbound call failed", "err", err, "from", caller, "call_uuid", r.FormValue("CallUUID"))
		http.Error(w, ErrDependency, http.StatusInternalServerError)
		return
	}
	writeXML(w, resp)
}

func (v *Voice) handleAppointmentIVR(w http.ResponseWriter, r *http.Request) {
	if err := plivo.ParseForm(r); err != nil {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}
	handyman := mux.Vars(r)["handymanPhone"]
	writeXML(w, v.Router.HandleDigit(r.FormValue("Digits"), handyman))
}

type placeSurveyRequest struct {
	To string `json:"to"`
}

func (v *Voice) handlePlaceSurveyCall(w http.ResponseWriter, r *http.Request) {
	target, ok := surveyTarget(r)
	if !ok {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}

	placed, err := v.Surveys.PlaceSurveyCall(r.Context(), target)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMissingFields):
		http.Error(w, ErrMissingField, http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrThrottled),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		slog.Warn("survey call rejected", "err", err, "to", target)
		http.Error(w, ErrUnavailable, http.StatusServiceUnavailable)
		return
	default:
		slog.Error("place survey call failed", "err", err, "to", target)
		http.Error(w, ErrProvider, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	status := placed.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(placed.Raw) > 0 {
		_, _ = w.Write(placed.Raw)
		return
	}
	_ = json.NewEncoder(w).Encode(placed.Response)
}

// surveyTarget reads "to" from a JSON body or a form. ok is false only when
// the body could not be parsed.
func surveyTarget(r *http.Request) (string, bool) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req placeSurveyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", false
		}
		return req.To, true
	}
	if err := plivo.ParseForm(r); err != nil {
		return "", false
	}
	return r.FormValue("to"), true
}

func (v *Voice) handleSurveyCallAnswered(w http.ResponseWriter, r *http.Request) {
	writeXML(w, v.Surveys.OnSurveyAnswered())
}

func (v *Voice) handleSurveyResult(w http.ResponseWriter, r *http.Request) {
	if err := plivo.ParseForm(r); err != nil {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}
	resp := v.Surveys.HandleSurveyDigit(r.Context(), r.FormValue("To"), r.FormValue("Digits"))
	writeXML(w, resp)
}

// handleHangup always acks; a partly unreadable form is logged and whatever
// fields did parse are still recorded.
func (v *Voice) handleHangup(w http.ResponseWriter, r *http.Request) {
	if err := plivo.ParseForm(r); err != nil {
		slog.Warn("hangup form parse failed", "err", err, "request_id", RequestIDFrom(r.Context()))
	}
	v.Calls.LogCall(r.Context(), plivo.HangupRecord(r))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func writeXML(w http.ResponseWriter, resp *plivo.Response) {
	body, err := resp.ToXML()
	if err != nil {
		slog.Error("render voice response failed", "err", err)
		http.Error(w, ErrDependency, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(body)
}
