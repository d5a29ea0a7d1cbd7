package logging

// Standard structured logging keys.
const (
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"
	FieldAlert         = "alert"
	FieldDecisionType  = "decision_type"
	// FieldUnit names the release unit being built (episode or NC id).
	FieldUnit = "unit"
	// FieldStep names the pipeline step within a unit build.
	FieldStep = "step"
)
