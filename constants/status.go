package constants

// SubmissionStage tracks a submission through the notification pipeline.
type SubmissionStage string

// Stable values (these exact strings appear in logs).
const (
	StageValidated          SubmissionStage = "VALIDATED"           // payload passed variant validation
	StageDocumentsPersisted SubmissionStage = "DOCUMENTS_PERSISTED" // all required documents stored
	StageRecordCommitted    SubmissionStage = "RECORD_COMMITTED"    // durable insert succeeded
	StageArtifactsBuilt     SubmissionStage = "ARTIFACTS_BUILT"     // best-effort; partial artifacts allowed
	StageDispatching        SubmissionStage = "DISPATCHING"         // notification fan-out in flight
	StageCompleted          SubmissionStage = "COMPLETED"           // at least one notification delivered
)
