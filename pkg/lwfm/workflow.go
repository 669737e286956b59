package lwfm

// Workflow is a named grouping of jobs. WorkflowID is immutable; updates
// are append-on-update rows in the store, with reads returning the newest.
type Workflow struct {
	WorkflowID  string
	Name        string
	Description string
	Props       map[string]string
}

// NewWorkflow returns a Workflow with an empty Props map ready for use.
func NewWorkflow(workflowID, name, description string) *Workflow {
	return &Workflow{
		WorkflowID:  workflowID,
		Name:        name,
		Description: description,
		Props:       map[string]string{},
	}
}
