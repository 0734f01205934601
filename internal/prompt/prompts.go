package prompt

import "sort"

// Comprehensive is the consolidated analysis prompt covering every use case in
// one completion. The model is asked for a single JSON object whose top-level
// keys match the sections of analysis.Document.
const Comprehensive = `
Analyze these patient notes comprehensively across all healthcare AI use cases:

{patient_notes}

Create a single comprehensive JSON response with ALL the following sections in this exact order:

{
    "clinical_summary": {
        "situation": "Current clinical situation and reason for encounter",
        "background": "Relevant medical history, medications, allergies",
        "assessment": "Clinical assessment including vital signs and key findings",
        "recommendation": "Treatment plan and follow-up recommendations",
        "clinical_summary": "One paragraph narrative summary",
        "chief_complaint": "Main presenting complaint"
    },

    "differential_diagnosis": {
        "chief_complaint": "Main presenting complaint",
        "differential_diagnoses": [
            {
                "diagnosis": "diagnosis name",
                "confidence": "high/medium/low",
                "evidence": ["Quote specific sentences from patient notes that support this diagnosis"],
                "discriminating_features": "What distinguishes this from other diagnoses",
                "icd10_code": "ICD-10 code if known"
            }
        ],
        "recommended_tests": [
            {"test": "test name", "rationale": "why this test is needed", "priority": "high/medium/low"}
        ],
        "diagnostic_reasoning": "Brief explanation of diagnostic thinking with specific references to patient notes",
        "diagnostic_confidence": "high/medium/low - overall confidence in diagnostic assessment"
    },

    "medication_safety": {
        "extracted_medications": [
            {"medication": "name", "dosage": "if mentioned", "frequency": "if mentioned", "indication": "reason for use"}
        ],
        "drug_interactions": [
            {"drug1": "drug1", "drug2": "drug2", "interaction_type": "major/moderate/minor", "clinical_effect": "description"}
        ],
        "contraindications": [
            {"medication": "name", "contraindication": "condition/allergy", "severity": "absolute/relative", "evidence": "Quote from notes supporting this contraindication"}
        ],
        "safety_alerts": [
            {"alert": "safety alert description", "severity": "high/medium/low", "medication": "related medication if applicable"}
        ],
        "polypharmacy_risk": "low/medium/high"
    },

    "treatment_analysis": {
        "current_treatments": [
            {"treatment": "name", "category": "medication/procedure/therapy", "effectiveness": "noted outcome if mentioned", "evidence": "Quote from notes about treatment response"}
        ],
        "treatment_effectiveness": "Overall assessment of treatment response with specific evidence from notes",
        "evidence_based_recommendations": [
            {"recommendation": "specific recommendation", "rationale": "clinical reasoning with quotes from notes", "evidence_level": "high/moderate/low"}
        ],
        "contraindicated_treatments": [
            {"treatment": "treatment to avoid", "reason": "clinical reason", "severity": "absolute/relative"}
        ]
    },

    "pattern_recognition": {
        "presentation_type": "typical/atypical/rare",
        "symptom_pattern": "Description of the symptom constellation",
        "rare_disease_indicators": [
            {"indicator": "specific finding", "associated_conditions": ["condition1", "condition2"], "significance": "explanation"}
        ],
        "anomaly_score": 0.0,
        "unusual_features": [
            {"feature": "unusual aspect", "rarity": "common/uncommon/rare", "clinical_significance": "why this matters"}
        ],
        "recommended_specialist": "Suggested specialist consultation if needed",
        "referral_urgency": "routine/urgent/emergent"
    },

    "quality_metrics": {
        "quality_indicators": [
            {"indicator": "specific quality measure", "met": true, "details": "explanation"}
        ],
        "guideline_adherence": [
            {"guideline": "relevant clinical guideline", "adherent": true, "gaps": ["any gaps identified"]}
        ],
        "safety_events": ["any safety issues or near misses identified in notes"],
        "care_coordination": "Assessment of care coordination quality",
        "improvement_opportunities": ["specific improvement suggestions"]
    },

    "cost_analysis": {
        "extracted_procedures": [
            {"procedure": "procedure name", "category": "imaging/lab/surgery/other", "potential_cpt": "CPT code if identifiable", "cost_impact": "high/medium/low"}
        ],
        "imaging_studies": ["list of imaging studies mentioned"],
        "laboratory_tests": ["list of lab tests mentioned"],
        "specialist_consults": ["specialties involved"],
        "high_cost_indicators": [
            {"indicator": "ICU admission/complex surgery/etc", "impact": "high/medium/low", "details": "specific details"}
        ],
        "complications": ["any complications that would increase cost"],
        "estimated_cost_category": "low/medium/high/very_high - based on procedures and complexity",
        "cost_justification": "Explanation of cost category assignment"
    },

    "educational_value": {
        "teaching_points": [
            {"concept": "key clinical concept", "explanation": "why it's important", "pearls": "clinical pearl"}
        ],
        "clinical_pearls": "Key takeaway message for learners",
        "complexity_level": "medical student/resident/fellow - appropriate learning level",
        "quiz_questions": [
            {
                "question": "Clinical question based on the case",
                "options": ["A) option 1", "B) option 2", "C) option 3", "D) option 4"],
                "correct_answer": "Letter of correct option",
                "explanation": "Why this answer is correct with reference to case details"
            }
        ],
        "learning_objectives": ["what learners should take away from this case"]
    }
}

Return ONLY the JSON response. Ensure all fields are populated with clinically relevant information extracted from or inferred from the patient notes. Use "Not mentioned" or "Unable to determine from notes" only when information is truly absent.
`

// Single-use-case prompts. Each asks for the JSON shape of one section of the
// comprehensive response and is addressable by use-case name.
const (
	differentialDiagnosis = `
Analyze these patient notes and provide differential diagnoses:

{patient_notes}

Create a JSON response with: "chief_complaint", "differential_diagnoses" (each with
"diagnosis", "confidence", "evidence", "icd10_code"), "recommended_tests" and
"diagnostic_reasoning". Focus on the most likely diagnoses based on the clinical presentation.
`

	clinicalSummary = `
Create a comprehensive clinical summary in SBAR format from these notes:

{patient_notes}

Format as JSON with keys "situation", "background", "assessment", "recommendation",
"clinical_summary" (one paragraph narrative) and "chief_complaint".
`

	medicationSafety = `
Extract all medications and analyze for safety concerns:

{patient_notes}

Create a JSON response with "extracted_medications" (name, dosage, frequency, indication),
"drug_interactions" (drug1, drug2, interaction_type, clinical_effect), "contraindications",
"safety_alerts" and "polypharmacy_risk". Consider drug-drug interactions, drug-disease
interactions, and age-related concerns.
`

	treatmentAnalysis = `
Analyze the treatments mentioned in these patient notes:

{patient_notes}

Create a JSON response with "current_treatments" (treatment, category, effectiveness),
"treatment_effectiveness", "evidence_based_recommendations" (recommendation, rationale,
evidence_level) and "contraindicated_treatments".
`

	patternRecognition = `
Analyze this patient presentation for unusual patterns or rare disease indicators:

{patient_notes}

Create a JSON response with "presentation_type" (typical/atypical/rare), "symptom_pattern",
"rare_disease_indicators" (indicator, associated_conditions, significance), "anomaly_score"
(0-1 scale, higher = more unusual), "unusual_features" and "recommended_specialist".
Consider genetic conditions, metabolic disorders, and rare syndromes.
`

	costAnalysis = `
Extract procedures, tests, and high-cost indicators from these clinical notes:

{patient_notes}

Create a JSON response with "extracted_procedures" (procedure, category, potential_cpt),
"imaging_studies", "laboratory_tests", "specialist_consults", "high_cost_indicators",
"complications", "estimated_cost_category" and "cost_justification".
`

	qualityMetrics = `
Assess quality of care indicators and guideline adherence:

{patient_notes}

Create a JSON response with "quality_indicators" (indicator, met, details),
"guideline_adherence" (guideline, adherent, gaps), "safety_events", "care_coordination"
and "improvement_opportunities".
`

	educationalValue = `
Extract educational value from this clinical case:

{patient_notes}

Create a JSON response with "teaching_points" (concept, explanation, pearls),
"clinical_pearls", "quiz_questions" (question, options, correct_answer, explanation),
"complexity_level" and "learning_objectives".
`
)

var catalog = map[string]string{
	"comprehensive":          Comprehensive,
	"differential_diagnosis": differentialDiagnosis,
	"clinical_summary":       clinicalSummary,
	"medication_safety":      medicationSafety,
	"treatment_analysis":     treatmentAnalysis,
	"pattern_recognition":    patternRecognition,
	"cost_analysis":          costAnalysis,
	"quality_metrics":        qualityMetrics,
	"educational_value":      educationalValue,
}

// ByUseCase returns the template for a named use case.
func ByUseCase(name string) (string, bool) {
	tpl, ok := catalog[name]
	return tpl, ok
}

// UseCases lists the known use-case names in sorted order.
func UseCases() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
