package dto

// AgentExecuteRequest confirms a privileged agent command with the tutor's password. The command
// comes either from the assistant Reply or from FunctionName and Args directly.
type AgentExecuteRequest struct {
	Password     string                 `json:"password" validate:"required"`
	Reply        string                 `json:"reply"`
	FunctionName string                 `json:"functionName"`
	Args         map[string]interface{} `json:"args"`
}

// CalendarQuery selects a civil month. Zero values mean the current month.
type CalendarQuery struct {
	Year  int `form:"year" validate:"omitempty,min=2000,max=2100"`
	Month int `form:"month" validate:"omitempty,min=1,max=12"`
}
