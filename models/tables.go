package models

// Sync table names. Each name identifies one syncable entity table and is
// the {table} segment of the pull/push endpoints. The measurement tables all
// share the generic [SyncRecord] envelope and one handler pair.
const (
	TablePatients    = "patients"
	TablePartographs = "partographs"

	TableFetalHeartRates     = "fetal_heart_rates"
	TableContractions        = "contractions"
	TableCervicalDilatations = "cervical_dilatations"
	TableDescents            = "descents"
	TableBloodPressures      = "blood_pressures"
	TableTemperatures        = "temperatures"
	TablePulses              = "pulses"
	TableAmnioticFluids      = "amniotic_fluids"
	TableMouldings           = "mouldings"
	TableCaputs              = "caputs"
	TableOxytocinDoses       = "oxytocin_doses"
	TableUrineOutputs        = "urine_outputs"
)

// Patient is the payload document of a record in the patients table.
type Patient struct {
	FullName        string `json:"full_name"`
	HospitalNumber  string `json:"hospital_number"`
	Age             int    `json:"age"`
	Gravida         int    `json:"gravida"`
	Parity          int    `json:"parity"`
	AdmissionTime   int64  `json:"admission_time"`
	MembraneRupture int64  `json:"membrane_rupture_time,omitempty"`
	RiskNotes       string `json:"risk_notes,omitempty"`
}

// Partograph is the payload document of a record in the partographs table.
// One partograph tracks a single labor for one patient; every measurement
// references its partograph.
type Partograph struct {
	PatientID      string `json:"patient_id"`
	StartedBy      int64  `json:"started_by"`
	LaborStartTime int64  `json:"labor_start_time"`
	ActivePhase    bool   `json:"active_phase"`
	Completed      bool   `json:"completed"`
	Outcome        string `json:"outcome,omitempty"`
}

// Measurement is the common head of every measurement payload: the parent
// partograph, who recorded it and when. Entity-specific fields follow in the
// concrete types below. The sync core only ever looks at PartographID (for
// parent validation), the clinical content is opaque to it, and any scoring
// over these values happens in external pure functions.
type Measurement struct {
	PartographID string `json:"partograph_id"`
	RecordedBy   int64  `json:"recorded_by"`
	RecordedTime int64  `json:"recorded_time"`
}

// FetalHeartRate is a single FHR observation in beats per minute.
type FetalHeartRate struct {
	Measurement
	Rate int `json:"rate"`
}

// Contraction records contraction frequency and duration over a ten-minute
// observation window.
type Contraction struct {
	Measurement
	PerTenMinutes   int `json:"per_ten_minutes"`
	DurationSeconds int `json:"duration_seconds"`
}

// CervicalDilatation is a vaginal-examination dilatation finding in cm.
type CervicalDilatation struct {
	Measurement
	Centimeters float64 `json:"centimeters"`
}

// Descent is the fetal head descent in fifths palpable above the brim.
type Descent struct {
	Measurement
	Fifths int `json:"fifths"`
}

// BloodPressure is a maternal blood pressure reading in mmHg.
type BloodPressure struct {
	Measurement
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// Temperature is a maternal temperature reading in degrees Celsius.
type Temperature struct {
	Measurement
	Celsius float64 `json:"celsius"`
}

// Pulse is a maternal pulse reading in beats per minute.
type Pulse struct {
	Measurement
	Rate int `json:"rate"`
}

// AmnioticFluid describes the amniotic fluid state ("clear", "meconium",
// "blood-stained", "absent").
type AmnioticFluid struct {
	Measurement
	State string `json:"state"`
}

// Moulding grades fetal skull moulding from 0 to 3.
type Moulding struct {
	Measurement
	Grade int `json:"grade"`
}

// Caput grades caput succedaneum from 0 to 3.
type Caput struct {
	Measurement
	Grade int `json:"grade"`
}

// OxytocinDose records an oxytocin administration in mU/min.
type OxytocinDose struct {
	Measurement
	UnitsPerMinute float64 `json:"units_per_minute"`
}

// UrineOutput records urine volume in ml plus protein/acetone dipstick
// findings.
type UrineOutput struct {
	Measurement
	VolumeML int    `json:"volume_ml"`
	Protein  string `json:"protein,omitempty"`
	Acetone  string `json:"acetone,omitempty"`
}
