package api

import (
	"time"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/outcome"
)

type AppointmentResponse struct {
	ID        string    `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id,omitempty"`
	Time      time.Time `json:"time"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	OutcomeID string    `json:"outcome_id,omitempty"`
}

type MedicationResponse struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
	PeriodDays int    `json:"period_days"`
	Dosage     string `json:"dosage,omitempty"`
	Status     string `json:"status"`
}

type PrescriptionResponse struct {
	DiagnosisID string               `json:"diagnosis_id"`
	Date        time.Time            `json:"date"`
	Dispensed   bool                 `json:"dispensed"`
	Medications []MedicationResponse `json:"medications"`
}

type OutcomeResponse struct {
	ID                string                `json:"id"`
	AppointmentID     string                `json:"appointment_id"`
	PatientID         string                `json:"patient_id"`
	DoctorID          string                `json:"doctor_id"`
	DiagnosisID       string                `json:"diagnosis_id"`
	AppointmentTime   time.Time             `json:"appointment_time"`
	TypeOfService     string                `json:"type_of_service,omitempty"`
	ConsultationNotes string                `json:"consultation_notes,omitempty"`
	Status            string                `json:"status"`
	Prescription      *PrescriptionResponse `json:"prescription,omitempty"`
}

type MedicineResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	InventoryStock  int        `json:"inventory_stock"`
	LowStockLevel   int        `json:"low_stock_level"`
	ReplenishStatus string     `json:"replenish_status"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Time:      a.Time,
		Location:  a.Location,
		Status:    string(a.Status),
		OutcomeID: a.OutcomeID,
	}
}

func toPrescriptionResponse(p *medrecord.Prescription) *PrescriptionResponse {
	if p == nil {
		return nil
	}
	resp := &PrescriptionResponse{
		DiagnosisID: p.DiagnosisID,
		Date:        p.Date,
		Dispensed:   p.Dispensed(),
		Medications: make([]MedicationResponse, 0, len(p.Medications)),
	}
	for _, m := range p.Medications {
		resp.Medications = append(resp.Medications, MedicationResponse{
			MedicineID: m.MedicineID,
			Quantity:   m.Quantity,
			PeriodDays: m.PeriodDays,
			Dosage:     m.Dosage,
			Status:     string(m.Status),
		})
	}
	return resp
}

func toOutcomeResponse(r outcome.Record) OutcomeResponse {
	return OutcomeResponse{
		ID:                r.ID,
		AppointmentID:     r.AppointmentID,
		PatientID:         r.PatientID,
		DoctorID:          r.DoctorID,
		DiagnosisID:       r.DiagnosisID,
		AppointmentTime:   r.AppointmentTime,
		TypeOfService:     r.TypeOfService,
		ConsultationNotes: r.ConsultationNotes,
		Status:            string(r.Status),
		Prescription:      toPrescriptionResponse(r.Prescription),
	}
}

func toMedicineResponse(m inventory.Medicine) MedicineResponse {
	resp := MedicineResponse{
		ID:              m.ID,
		Name:            m.Name,
		InventoryStock:  m.InventoryStock,
		LowStockLevel:   m.LowStockLevel,
		ReplenishStatus: string(m.ReplenishStatus),
	}
	if !m.ExpiryDate.IsZero() {
		exp := m.ExpiryDate
		resp.ExpiryDate = &exp
	}
	return resp
}
