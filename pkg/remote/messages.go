package remote

import "github.com/boristopalov/airwrap/pkg/core"

type ResetRequest struct{}

type ResetResponse struct {
	Observations core.ObservationBatch `json:"observations"`
	Agents       []core.AgentSnapshot  `json:"agents"`
}

// StepRequest carries the joint action plus the goal of every agent, so goals set
// between steps reach the remote flight controller with the next step.
type StepRequest struct {
	Actions core.JointAction         `json:"actions"`
	Goals   map[string]core.Position `json:"goals,omitempty"`
}

type StepResponse struct {
	Result core.StepResult      `json:"result"`
	Agents []core.AgentSnapshot `json:"agents"`
}

type PoseRequest struct {
	Name string `json:"name"`
}

type PoseResponse struct {
	Pose core.Pose `json:"pose"`
}

type ListRequest struct{}

type ListResponse struct {
	Names []string `json:"names"`
}
