package models

// AgentActionRequireAuth marks an agent reply that asks for a privileged operation.
const AgentActionRequireAuth = "REQUIRE_AUTH"

// AgentCommand is the structured command an assistant reply carries.
type AgentCommand struct {
	Action       string                 `json:"action"`
	Operation    string                 `json:"operation,omitempty"`
	FunctionName string                 `json:"functionName"`
	Args         map[string]interface{} `json:"args,omitempty"`
}

// AgentResult reports the outcome of an executed agent command.
type AgentResult struct {
	FunctionName string `json:"function_name"`
	TargetID     string `json:"target_id,omitempty"`
	Affected     int64  `json:"affected"`
	Message      string `json:"message"`
}
