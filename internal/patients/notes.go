package patients

import "context"

// NotesSource adapts a Repo to callers that only need the note text.
type NotesSource struct {
	Repo Repo
}

func (s NotesSource) GetNotes(ctx context.Context, recordID int64) (string, error) {
	p, err := s.Repo.GetByID(ctx, recordID)
	if err != nil {
		return "", err
	}
	return p.Notes, nil
}

func (s NotesSource) ListIDs(ctx context.Context, limit int) ([]int64, error) {
	return s.Repo.ListIDs(ctx, limit)
}
