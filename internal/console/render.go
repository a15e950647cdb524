package console

import (
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/outcome"
	"github.com/hackgods/hospital-management-system/internal/personnel"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	return t
}

func renderAppointments(w io.Writer, slots []appointment.Appointment) {
	if len(slots) == 0 {
		io.WriteString(w, "No appointments.\n")
		return
	}
	t := newTable(w, "ID", "Doctor", "Patient", "Time", "Location", "Status", "Outcome")
	for _, a := range slots {
		t.Append([]string{
			a.ID,
			a.DoctorID,
			dash(a.PatientID),
			a.Time.Format(DateTimeLayout),
			dash(a.Location),
			string(a.Status),
			dash(a.OutcomeID),
		})
	}
	t.Render()
}

func renderOutcomes(w io.Writer, records []outcome.Record) {
	if len(records) == 0 {
		io.WriteString(w, "No outcome records.\n")
		return
	}
	t := newTable(w, "ID", "Appointment", "Time", "Doctor", "Service", "Notes", "Status", "Prescription")
	for _, r := range records {
		t.Append([]string{
			r.ID,
			r.AppointmentID,
			r.AppointmentTime.Format(DateTimeLayout),
			r.DoctorID,
			dash(r.TypeOfService),
			dash(r.ConsultationNotes),
			string(r.Status),
			prescriptionSummary(r.Prescription),
		})
	}
	t.Render()
}

func renderPrescription(w io.Writer, p *medrecord.Prescription) {
	if p == nil || len(p.Medications) == 0 {
		io.WriteString(w, "No prescription.\n")
		return
	}
	t := newTable(w, "Line", "Medicine", "Qty", "Days", "Dosage", "Status")
	for _, m := range p.Medications {
		t.Append([]string{
			m.ID,
			m.MedicineID,
			strconv.Itoa(m.Quantity),
			strconv.Itoa(m.PeriodDays),
			dash(m.Dosage),
			string(m.Status),
		})
	}
	t.Render()
}

func renderRecords(w io.Writer, records []medrecord.MedicalRecord) {
	if len(records) == 0 {
		io.WriteString(w, "No medical records.\n")
		return
	}
	for _, r := range records {
		io.WriteString(w, "Record "+r.ID+"  patient "+r.PatientID+"  doctor "+r.DoctorID+
			"  blood type "+dash(r.BloodType)+"  allergies "+dash(strings.Join(r.Allergies, ", "))+"\n")
		if len(r.Diagnoses) == 0 {
			io.WriteString(w, "  No diagnoses.\n")
			continue
		}
		t := newTable(w, "Diagnosis", "Date", "Description", "Treatment", "Prescription")
		for _, d := range r.Diagnoses {
			treatment := "-"
			if d.Treatment != nil {
				treatment = d.Treatment.Description
			}
			t.Append([]string{
				d.ID,
				d.Date.Format(DateLayout),
				d.Description,
				treatment,
				prescriptionSummary(d.Prescription),
			})
		}
		t.Render()
	}
}

func renderMedicines(w io.Writer, meds []inventory.Medicine) {
	if len(meds) == 0 {
		io.WriteString(w, "No medicines.\n")
		return
	}
	t := newTable(w, "ID", "Name", "Manufacturer", "Expiry", "Stock", "Low level", "Replenish qty", "Replenish")
	for _, m := range meds {
		stock := strconv.Itoa(m.InventoryStock)
		if m.IsLowStock() {
			stock += " (low)"
		}
		expiry := "-"
		if !m.ExpiryDate.IsZero() {
			expiry = m.ExpiryDate.Format(DateLayout)
		}
		t.Append([]string{
			m.ID,
			m.Name,
			dash(m.Manufacturer),
			expiry,
			stock,
			strconv.Itoa(m.LowStockLevel),
			strconv.Itoa(m.ReplenishmentStock),
			string(m.ReplenishStatus),
		})
	}
	t.Render()
}

func renderAccounts(w io.Writer, accounts []personnel.Account) {
	if len(accounts) == 0 {
		io.WriteString(w, "No accounts.\n")
		return
	}
	t := newTable(w, "ID", "Name", "Role", "Gender", "Age", "Email", "Phone")
	for _, a := range accounts {
		t.Append([]string{
			a.ID,
			a.Name,
			string(a.Role),
			dash(string(a.Gender)),
			strconv.Itoa(a.Age),
			dash(a.Email),
			dash(a.Phone),
		})
	}
	t.Render()
}

func prescriptionSummary(p *medrecord.Prescription) string {
	if p == nil || len(p.Medications) == 0 {
		return "-"
	}
	if p.Dispensed() {
		return strconv.Itoa(len(p.Medications)) + " items, dispensed"
	}
	return strconv.Itoa(len(p.Medications)) + " items, pending"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
