package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres. Sections are stored as individual
// jsonb columns so the upsert can merge at section granularity.
type PGRepo struct {
	DB *sql.DB
}

const upsertQuery = `
INSERT INTO patient_analysis (
	patient_id, clinical_summary, differential_diagnosis, medication_safety,
	treatment_analysis, pattern_recognition, quality_metrics, cost_analysis,
	educational_value, model_used, succeeded, error_kind, processed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (patient_id) DO UPDATE SET
	clinical_summary       = COALESCE(EXCLUDED.clinical_summary, patient_analysis.clinical_summary),
	differential_diagnosis = COALESCE(EXCLUDED.differential_diagnosis, patient_analysis.differential_diagnosis),
	medication_safety      = COALESCE(EXCLUDED.medication_safety, patient_analysis.medication_safety),
	treatment_analysis     = COALESCE(EXCLUDED.treatment_analysis, patient_analysis.treatment_analysis),
	pattern_recognition    = COALESCE(EXCLUDED.pattern_recognition, patient_analysis.pattern_recognition),
	quality_metrics        = COALESCE(EXCLUDED.quality_metrics, patient_analysis.quality_metrics),
	cost_analysis          = COALESCE(EXCLUDED.cost_analysis, patient_analysis.cost_analysis),
	educational_value      = COALESCE(EXCLUDED.educational_value, patient_analysis.educational_value),
	model_used             = EXCLUDED.model_used,
	succeeded              = EXCLUDED.succeeded,
	error_kind             = EXCLUDED.error_kind,
	processed_at           = EXCLUDED.processed_at
WHERE EXCLUDED.processed_at >= patient_analysis.processed_at`

// Upsert merges the outcome into the stored row. Concurrent upserts to the
// same record resolve last-write-wins by processed timestamp.
func (r *PGRepo) Upsert(ctx context.Context, outcome Outcome) error {
	doc := outcome.Document
	sections, err := marshalSections(doc)
	if err != nil {
		return err
	}
	args := make([]any, 0, 13)
	args = append(args, outcome.RecordID)
	args = append(args, sections...)
	args = append(args, outcome.ModelUsed, outcome.Succeeded, nullableKind(outcome.ErrorKind), outcome.ProcessedAt)
	_, err = r.DB.ExecContext(ctx, upsertQuery, args...)
	return err
}

// Get returns the stored outcome for a record id.
func (r *PGRepo) Get(ctx context.Context, recordID int64) (Outcome, error) {
	const query = `
SELECT patient_id, clinical_summary, differential_diagnosis, medication_safety,
       treatment_analysis, pattern_recognition, quality_metrics, cost_analysis,
       educational_value, model_used, succeeded, error_kind, processed_at
FROM patient_analysis
WHERE patient_id = $1
LIMIT 1`
	var (
		outcome  Outcome
		sections [8]sql.NullString
		kind     sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, recordID).Scan(
		&outcome.RecordID,
		&sections[0], &sections[1], &sections[2], &sections[3],
		&sections[4], &sections[5], &sections[6], &sections[7],
		&outcome.ModelUsed,
		&outcome.Succeeded,
		&kind,
		&outcome.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}
	if kind.Valid {
		outcome.ErrorKind = ErrorKind(kind.String)
	}
	outcome.Document = scanSections(sections)
	return outcome, nil
}

// ListAnalyzedIDs returns every record id with a stored analysis.
func (r *PGRepo) ListAnalyzedIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT patient_id FROM patient_analysis ORDER BY patient_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalSections(doc Document) ([]any, error) {
	out := make([]any, 0, 8)
	for _, section := range []any{
		doc.ClinicalSummary,
		doc.DifferentialDiagnosis,
		doc.MedicationSafety,
		doc.TreatmentAnalysis,
		doc.PatternRecognition,
		doc.QualityMetrics,
		doc.CostAnalysis,
		doc.EducationalValue,
	} {
		payload, err := marshalJSONB(section)
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, nil
}

// marshalJSONB converts an optional section into a nullable jsonb argument.
func marshalJSONB(section any) (any, error) {
	if section == nil || isNilPointer(section) {
		return nil, nil
	}
	data, err := json.Marshal(section)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func isNilPointer(v any) bool {
	switch s := v.(type) {
	case *ClinicalSummary:
		return s == nil
	case *DifferentialDiagnosis:
		return s == nil
	case *MedicationSafety:
		return s == nil
	case *TreatmentAnalysis:
		return s == nil
	case *PatternRecognition:
		return s == nil
	case *QualityMetrics:
		return s == nil
	case *CostAnalysis:
		return s == nil
	case *EducationalValue:
		return s == nil
	default:
		return false
	}
}

func scanSections(sections [8]sql.NullString) Document {
	obj := make(map[string]json.RawMessage, 8)
	keys := []string{
		"clinical_summary", "differential_diagnosis", "medication_safety",
		"treatment_analysis", "pattern_recognition", "quality_metrics",
		"cost_analysis", "educational_value",
	}
	for i, key := range keys {
		if sections[i].Valid && sections[i].String != "" {
			obj[key] = json.RawMessage(sections[i].String)
		}
	}
	return DecodeDocument(obj)
}

func nullableKind(kind ErrorKind) any {
	if kind == ErrKindNone {
		return nil
	}
	return string(kind)
}

var _ Repo = (*PGRepo)(nil)
