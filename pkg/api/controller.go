package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"car-service/pkg/model"
	"car-service/pkg/progress"
	"car-service/pkg/tracker"
	"car-service/pkg/version"
)

// RegisterRoutes wires the HTTP handlers on the provided mux.
func RegisterRoutes(mux *http.ServeMux, svc *tracker.Service, authz Authorizer, images *ImageCache) {
	user := func(h http.HandlerFunc) http.HandlerFunc { return authz.Middleware(h, false) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return authz.Middleware(h, true) }

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("car-service api"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if p, ok := svc.Store().(interface{ Ping() error }); ok {
			if err := p.Ping(); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("X-Build", version.Build)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/appointments", user(func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r.Context())
		switch r.Method {
		case http.MethodGet:
			customerID := scopeCustomer(id, r.URL.Query().Get("customerId"))
			list, err := svc.Store().ListAppointments(customerID)
			if err != nil {
				http.Error(w, "failed to list appointments", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
		case http.MethodPost:
			var req model.Appointment
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
			if !id.Admin {
				req.CustomerID = id.CustomerID
				if req.ID != "" {
					if existing, ok, _ := svc.Store().GetAppointment(req.ID); ok && existing.CustomerID != id.CustomerID {
						http.Error(w, "forbidden", http.StatusForbidden)
						return
					}
				}
			}
			saved, err := svc.BookAppointment(r.Context(), req)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, saved)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.HandleFunc("/api/v1/appointments/start", admin(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAppointmentAction(w, r)
		if !ok {
			return
		}
		p, err := svc.StartService(tracker.WithActor(r.Context(), identityFrom(r.Context()).Name), req.AppointmentID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}))

	mux.HandleFunc("/api/v1/appointments/complete", admin(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAppointmentAction(w, r)
		if !ok {
			return
		}
		appt, err := svc.CompleteService(tracker.WithActor(r.Context(), identityFrom(r.Context()).Name), req.AppointmentID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}))

	mux.HandleFunc("/api/v1/progress", user(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := identityFrom(r.Context())
		appointmentID := r.URL.Query().Get("appointmentId")
		if appointmentID == "" {
			// progress management list: staff see every record, customers their own
			list, err := svc.ListProgress(r.Context(), scopeCustomer(id, r.URL.Query().Get("customerId")))
			if err != nil {
				http.Error(w, "failed to list progress", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
			return
		}
		appt, ok, err := svc.Store().GetAppointment(appointmentID)
		if err != nil {
			http.Error(w, "failed to load appointment", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		if !id.Admin && appt.CustomerID != id.CustomerID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		// staff see photos as the owning customer would unless they ask for another viewer
		viewer := r.URL.Query().Get("viewer")
		if !id.Admin || viewer == "" {
			viewer = appt.CustomerID
		}
		view, err := svc.View(tracker.WithActor(r.Context(), id.Name), appointmentID, viewer)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}))

	mux.HandleFunc("/api/v1/progress/task", admin(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req TaskStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AppointmentID == "" || req.TaskID == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		status, err := progress.ParseStatus(req.Status)
		if err != nil {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		res, err := svc.UpdateTaskStatus(tracker.WithActor(r.Context(), identityFrom(r.Context()).Name), req.AppointmentID, req.TaskID, status, req.Technician)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}))

	mux.HandleFunc("/api/v1/images", user(func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r.Context())
		switch r.Method {
		case http.MethodGet:
			customerID := scopeCustomer(id, r.URL.Query().Get("customerId"))
			list, err := images.Visible(r.Context(), customerID)
			if err != nil {
				http.Error(w, "failed to list images", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
		case http.MethodPost:
			if !id.Admin {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			var req ImageUploadRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
			img, err := svc.UploadImage(tracker.WithActor(r.Context(), id.Name), model.SharedImage{
				URL:        req.URL,
				Title:      req.Title,
				Category:   req.Category,
				CustomerID: req.CustomerID,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, img)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.HandleFunc("/api/v1/notifications", user(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		customerID := scopeCustomer(identityFrom(r.Context()), r.URL.Query().Get("customerId"))
		if customerID == "" {
			http.Error(w, "customerId is required", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := svc.Notifications(r.Context(), customerID, limit)
		if err != nil {
			http.Error(w, "failed to list notifications", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
	}))

	mux.HandleFunc("/api/v1/notifications/read", user(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NotificationID == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		customerID := scopeCustomer(identityFrom(r.Context()), req.CustomerID)
		ok, err := svc.MarkRead(r.Context(), customerID, req.NotificationID)
		if err != nil {
			http.Error(w, "failed to update notification", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"updated": ok})
	}))

	mux.HandleFunc("/api/v1/audit", admin(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		entries, err := svc.Store().ListAudit(50)
		if err != nil {
			http.Error(w, "failed to list audit", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}))
}

func decodeAppointmentAction(w http.ResponseWriter, r *http.Request) (AppointmentActionRequest, bool) {
	var req AppointmentActionRequest
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AppointmentID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, tracker.ErrAppointmentNotFound) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	log.Printf("request failed: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
