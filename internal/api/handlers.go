package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/outcome"
)

func listAppointmentsHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		doctorID := q.Get("doctor_id")
		patientID := q.Get("patient_id")
		status := appointment.Status(q.Get("status"))
		if status != "" && !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status "+string(status))
			return
		}

		all, err := svc.All(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(all))
		for _, a := range all {
			if doctorID != "" && a.DoctorID != doctorID {
				continue
			}
			if patientID != "" && a.PatientID != patientID {
				continue
			}
			if status != "" && a.Status != status {
				continue
			}
			resp = append(resp, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availableSlotsHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.AvailableSlots(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		resp := make([]AppointmentResponse, 0, len(slots))
		for _, a := range slots {
			resp = append(resp, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc AppointmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*a))
	}
}

func patientOutcomesHandler(svc OutcomeReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ForPatient(r.Context(), chi.URLParam(r, "id"))
		if err != nil && !errors.Is(err, outcome.ErrNoOutcomesForPatient) {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		resp := make([]OutcomeResponse, 0, len(records))
		for _, rec := range records {
			resp = append(resp, toOutcomeResponse(rec))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func lowStockHandler(svc MedicineReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meds, err := svc.LowStock(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		resp := make([]MedicineResponse, 0, len(meds))
		for _, m := range meds {
			resp = append(resp, toMedicineResponse(m))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
