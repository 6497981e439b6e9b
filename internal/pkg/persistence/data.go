package persistence

import (
	"database/sql"
	"time"
	"unicode/utf8"

	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/google/uuid"
)

const titleLen = 30

type (

	//Diary table
	Diary struct {
		ID        string
		UserID    string
		Title     string
		Content   string
		Mood      string
		Intensity int
		Created   time.Time
	}

	//ReqData table
	ReqData struct {
		ID        string
		UserID    string
		FileName  string
		RequestID string
		Created   time.Time
	}

	//Status information table
	Status struct {
		ID        string
		Status    string
		Error     sql.NullString
		ErrorCode sql.NullString
		DiaryID   sql.NullString
		Text      sql.NullString
		Emotion   sql.NullString
		Intensity sql.NullInt32
		Created   time.Time
		Updated   time.Time
		Version   int
	}
)

// NewDiary makes a diary record from the pipeline result
func NewDiary(userID string, res *api.Result, now time.Time) *Diary {
	return &Diary{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     Title(res.Text),
		Content:   res.Text,
		Mood:      string(res.Emotion),
		Intensity: res.Intensity,
		Created:   now,
	}
}

// Title returns the first runes of the text
func Title(text string) string {
	if utf8.RuneCountInString(text) <= titleLen {
		return text
	}
	return string([]rune(text)[:titleLen])
}
