package status

//Status represents diary job status
type Status int

const (
	// Uploaded value
	Uploaded Status = iota + 1
	// Working step
	Working
	// Completed - final step
	Completed
)

var (
	statusName = map[Status]string{Uploaded: "UPLOADED", Completed: "COMPLETED",
		Working: "WORKING"}
	nameStatus = map[string]Status{"UPLOADED": Uploaded, "COMPLETED": Completed,
		"WORKING": Working}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// ErrCode is a code of a failed job
type ErrCode int

const (
	// ECTranscriptionError - speech recognition failed
	ECTranscriptionError ErrCode = iota + 1
	// ECPersistenceError - diary was not saved
	ECPersistenceError
	// ECServiceError - any other failure after retries
	ECServiceError
	// ECNotFound - no such job
	ECNotFound
)

var errCodeName = map[ErrCode]string{ECTranscriptionError: "TRANSCRIPTION_ERROR",
	ECPersistenceError: "PERSISTENCE_ERROR", ECServiceError: "SERVICE_ERROR", ECNotFound: "NOT_FOUND"}

func (ec ErrCode) String() string {
	return errCodeName[ec]
}
