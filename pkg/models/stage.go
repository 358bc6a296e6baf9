package models

// Stage is a named step of the hiring pipeline.
type Stage struct {
	ID    string `json:"id"    yaml:"id"    validate:"required"`
	Label string `json:"label" yaml:"label" validate:"required"`
}

// StageCatalog maps stage identifiers to display labels.
type StageCatalog struct {
	Stages []Stage `json:"stages" yaml:"stages" validate:"dive"`
}

// DefaultStageCatalog returns the stages of the standard hiring pipeline.
func DefaultStageCatalog() StageCatalog {
	return StageCatalog{Stages: []Stage{
		{ID: "pending", Label: "Application Review"},
		{ID: "hr", Label: "HR Screening"},
		{ID: "written_test", Label: "Written Test"},
		{ID: "demo_slot", Label: "Demo Slot Selection"},
		{ID: "demo_schedule", Label: "Demo Scheduled"},
		{ID: "feedback_result", Label: "Feedback & Results"},
		{ID: "interaction", Label: "Final Interaction"},
		{ID: "bgv", Label: "Background Verification"},
		{ID: "confirmation", Label: "Confirmation"},
		{ID: "upload_documents", Label: "Document Upload"},
		{ID: "verify", Label: "Verification"},
		{ID: "approval", Label: "Approval"},
		{ID: "offer_letter", Label: "Offer Letter"},
		{ID: "onboarding", Label: "Onboarding"},
	}}
}

// Label returns the display label of a stage, or the identifier itself when unknown.
func (c StageCatalog) Label(id string) string {
	for _, stage := range c.Stages {
		if stage.ID == id {
			return stage.Label
		}
	}

	return id
}
