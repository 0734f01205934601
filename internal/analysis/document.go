package analysis

import (
	"encoding/json"
	"unicode/utf8"
)

// Document is the structured analysis of one patient note. Every section is
// optional: the model is not guaranteed to populate all of them, and a section
// that fails to decode is dropped rather than poisoning the document.
type Document struct {
	ClinicalSummary       *ClinicalSummary       `json:"clinical_summary,omitempty"`
	DifferentialDiagnosis *DifferentialDiagnosis `json:"differential_diagnosis,omitempty"`
	MedicationSafety      *MedicationSafety      `json:"medication_safety,omitempty"`
	TreatmentAnalysis     *TreatmentAnalysis     `json:"treatment_analysis,omitempty"`
	PatternRecognition    *PatternRecognition    `json:"pattern_recognition,omitempty"`
	QualityMetrics        *QualityMetrics        `json:"quality_metrics,omitempty"`
	CostAnalysis          *CostAnalysis          `json:"cost_analysis,omitempty"`
	EducationalValue      *EducationalValue      `json:"educational_value,omitempty"`
}

// ClinicalSummary is the SBAR-style summary section.
type ClinicalSummary struct {
	Situation       string `json:"situation,omitempty"`
	Background      string `json:"background,omitempty"`
	Assessment      string `json:"assessment,omitempty"`
	Recommendation  string `json:"recommendation,omitempty"`
	ClinicalSummary string `json:"clinical_summary,omitempty"`
	ChiefComplaint  string `json:"chief_complaint,omitempty"`
}

type DifferentialDiagnosis struct {
	ChiefComplaint       string            `json:"chief_complaint,omitempty"`
	Diagnoses            []Diagnosis       `json:"differential_diagnoses,omitempty"`
	RecommendedTests     []RecommendedTest `json:"recommended_tests,omitempty"`
	DiagnosticReasoning  string            `json:"diagnostic_reasoning,omitempty"`
	DiagnosticConfidence string            `json:"diagnostic_confidence,omitempty"`
}

type Diagnosis struct {
	Diagnosis              string   `json:"diagnosis,omitempty"`
	Confidence             string   `json:"confidence,omitempty"`
	Evidence               []string `json:"evidence,omitempty"`
	DiscriminatingFeatures string   `json:"discriminating_features,omitempty"`
	ICD10Code              string   `json:"icd10_code,omitempty"`
}

type RecommendedTest struct {
	Test      string `json:"test,omitempty"`
	Rationale string `json:"rationale,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

type MedicationSafety struct {
	ExtractedMedications []Medication       `json:"extracted_medications,omitempty"`
	DrugInteractions     []DrugInteraction  `json:"drug_interactions,omitempty"`
	Contraindications    []Contraindication `json:"contraindications,omitempty"`
	SafetyAlerts         []SafetyAlert      `json:"safety_alerts,omitempty"`
	PolypharmacyRisk     string             `json:"polypharmacy_risk,omitempty"`
}

type Medication struct {
	Medication string `json:"medication,omitempty"`
	Dosage     string `json:"dosage,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
	Indication string `json:"indication,omitempty"`
}

type DrugInteraction struct {
	Drug1           string `json:"drug1,omitempty"`
	Drug2           string `json:"drug2,omitempty"`
	InteractionType string `json:"interaction_type,omitempty"`
	ClinicalEffect  string `json:"clinical_effect,omitempty"`
}

type Contraindication struct {
	Medication       string `json:"medication,omitempty"`
	Contraindication string `json:"contraindication,omitempty"`
	Severity         string `json:"severity,omitempty"`
	Evidence         string `json:"evidence,omitempty"`
}

type SafetyAlert struct {
	Alert      string `json:"alert,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Medication string `json:"medication,omitempty"`
}

type TreatmentAnalysis struct {
	CurrentTreatments        []Treatment                `json:"current_treatments,omitempty"`
	TreatmentEffectiveness   string                     `json:"treatment_effectiveness,omitempty"`
	Recommendations          []TreatmentRecommendation  `json:"evidence_based_recommendations,omitempty"`
	ContraindicatedTreatment []ContraindicatedTreatment `json:"contraindicated_treatments,omitempty"`
}

type Treatment struct {
	Treatment     string `json:"treatment,omitempty"`
	Category      string `json:"category,omitempty"`
	Effectiveness string `json:"effectiveness,omitempty"`
	Evidence      string `json:"evidence,omitempty"`
}

type TreatmentRecommendation struct {
	Recommendation string `json:"recommendation,omitempty"`
	Rationale      string `json:"rationale,omitempty"`
	EvidenceLevel  string `json:"evidence_level,omitempty"`
}

type ContraindicatedTreatment struct {
	Treatment string `json:"treatment,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

type PatternRecognition struct {
	PresentationType      string                 `json:"presentation_type,omitempty"`
	SymptomPattern        string                 `json:"symptom_pattern,omitempty"`
	RareDiseaseIndicators []RareDiseaseIndicator `json:"rare_disease_indicators,omitempty"`
	AnomalyScore          *float64               `json:"anomaly_score,omitempty"`
	UnusualFeatures       []UnusualFeature       `json:"unusual_features,omitempty"`
	RecommendedSpecialist string                 `json:"recommended_specialist,omitempty"`
	ReferralUrgency       string                 `json:"referral_urgency,omitempty"`
}

type RareDiseaseIndicator struct {
	Indicator            string   `json:"indicator,omitempty"`
	AssociatedConditions []string `json:"associated_conditions,omitempty"`
	Significance         string   `json:"significance,omitempty"`
}

type UnusualFeature struct {
	Feature              string `json:"feature,omitempty"`
	Rarity               string `json:"rarity,omitempty"`
	ClinicalSignificance string `json:"clinical_significance,omitempty"`
}

type QualityMetrics struct {
	QualityIndicators        []QualityIndicator  `json:"quality_indicators,omitempty"`
	GuidelineAdherence       []GuidelineAdherence `json:"guideline_adherence,omitempty"`
	SafetyEvents             []string            `json:"safety_events,omitempty"`
	CareCoordination         string              `json:"care_coordination,omitempty"`
	ImprovementOpportunities []string            `json:"improvement_opportunities,omitempty"`
}

type QualityIndicator struct {
	Indicator string `json:"indicator,omitempty"`
	Met       *bool  `json:"met,omitempty"`
	Details   string `json:"details,omitempty"`
}

type GuidelineAdherence struct {
	Guideline string   `json:"guideline,omitempty"`
	Adherent  *bool    `json:"adherent,omitempty"`
	Gaps      []string `json:"gaps,omitempty"`
}

type CostAnalysis struct {
	ExtractedProcedures   []Procedure         `json:"extracted_procedures,omitempty"`
	ImagingStudies        []string            `json:"imaging_studies,omitempty"`
	LaboratoryTests       []string            `json:"laboratory_tests,omitempty"`
	SpecialistConsults    []string            `json:"specialist_consults,omitempty"`
	HighCostIndicators    []HighCostIndicator `json:"high_cost_indicators,omitempty"`
	Complications         []string            `json:"complications,omitempty"`
	EstimatedCostCategory string              `json:"estimated_cost_category,omitempty"`
	CostJustification     string              `json:"cost_justification,omitempty"`
}

type Procedure struct {
	Procedure    string `json:"procedure,omitempty"`
	Category     string `json:"category,omitempty"`
	PotentialCPT string `json:"potential_cpt,omitempty"`
	CostImpact   string `json:"cost_impact,omitempty"`
}

type HighCostIndicator struct {
	Indicator string `json:"indicator,omitempty"`
	Impact    string `json:"impact,omitempty"`
	Details   string `json:"details,omitempty"`
}

type EducationalValue struct {
	TeachingPoints     []TeachingPoint `json:"teaching_points,omitempty"`
	ClinicalPearls     string          `json:"clinical_pearls,omitempty"`
	ComplexityLevel    string          `json:"complexity_level,omitempty"`
	QuizQuestions      []QuizQuestion  `json:"quiz_questions,omitempty"`
	LearningObjectives []string        `json:"learning_objectives,omitempty"`
}

type TeachingPoint struct {
	Concept     string `json:"concept,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Pearls      string `json:"pearls,omitempty"`
}

type QuizQuestion struct {
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// IsEmpty reports whether no section is populated.
func (d Document) IsEmpty() bool {
	return d.ClinicalSummary == nil &&
		d.DifferentialDiagnosis == nil &&
		d.MedicationSafety == nil &&
		d.TreatmentAnalysis == nil &&
		d.PatternRecognition == nil &&
		d.QualityMetrics == nil &&
		d.CostAnalysis == nil &&
		d.EducationalValue == nil
}

// DegradedMaxChars caps the raw-text summary kept in a degraded document.
const DegradedMaxChars = 1500

// DegradedDocument builds the minimal document retained when no structured
// response could be parsed from either model: just the truncated raw text in
// the clinical summary slot.
func DegradedDocument(rawText string) Document {
	if utf8.RuneCountInString(rawText) > DegradedMaxChars {
		rawText = string([]rune(rawText)[:DegradedMaxChars])
	}
	return Document{
		ClinicalSummary: &ClinicalSummary{ClinicalSummary: rawText},
	}
}

// DecodeDocument builds a Document from a generic JSON object, decoding each
// known section independently so one malformed section does not discard the
// rest.
func DecodeDocument(obj map[string]json.RawMessage) Document {
	var doc Document
	decodeSection(obj, "clinical_summary", &doc.ClinicalSummary)
	decodeSection(obj, "differential_diagnosis", &doc.DifferentialDiagnosis)
	decodeSection(obj, "medication_safety", &doc.MedicationSafety)
	decodeSection(obj, "treatment_analysis", &doc.TreatmentAnalysis)
	decodeSection(obj, "pattern_recognition", &doc.PatternRecognition)
	decodeSection(obj, "quality_metrics", &doc.QualityMetrics)
	decodeSection(obj, "cost_analysis", &doc.CostAnalysis)
	decodeSection(obj, "educational_value", &doc.EducationalValue)
	return doc
}

func decodeSection[T any](obj map[string]json.RawMessage, key string, dst **T) {
	raw, ok := obj[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return
	}
	section := new(T)
	if err := json.Unmarshal(raw, section); err != nil {
		return
	}
	*dst = section
}
