package patients

import "time"

// Patient is one source record: a clinical note plus light demographics.
type Patient struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	Age       *float64  `json:"age,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// previewChars bounds the notes excerpt returned in listings.
const previewChars = 200

// Preview is a listing row: identity plus a notes excerpt.
type Preview struct {
	ID           int64    `json:"id"`
	UID          string   `json:"uid"`
	Title        string   `json:"title"`
	Age          *float64 `json:"age,omitempty"`
	Gender       string   `json:"gender,omitempty"`
	NotesPreview string   `json:"notesPreview"`
}

func previewOf(p Patient) Preview {
	notes := p.Notes
	if len(notes) > previewChars {
		notes = notes[:previewChars] + "..."
	}
	return Preview{
		ID:           p.ID,
		UID:          p.UID,
		Title:        p.Title,
		Age:          p.Age,
		Gender:       p.Gender,
		NotesPreview: notes,
	}
}
