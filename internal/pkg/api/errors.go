package api

// ValidationError indicates a wrong upload, it is returned before any remote call
type ValidationError struct {
	Msg string
}

// NewValidationError creates new error
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// TranscriptionError indicates failed speech recognition.
// The pipeline can't produce a result without text, so it is always fatal
type TranscriptionError struct {
	err error
}

// NewTranscriptionError creates new error
func NewTranscriptionError(err error) error {
	return &TranscriptionError{err: err}
}

func (e *TranscriptionError) Error() string {
	return "transcription failed: " + e.err.Error()
}

func (e *TranscriptionError) Unwrap() error {
	return e.err
}

// PersistenceError indicates failure to store a diary
type PersistenceError struct {
	err error
}

// NewPersistenceError creates new error
func NewPersistenceError(err error) error {
	return &PersistenceError{err: err}
}

func (e *PersistenceError) Error() string {
	return "can't save diary: " + e.err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.err
}
