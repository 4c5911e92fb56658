package dto

// StudentRequest creates or updates a student.
type StudentRequest struct {
	Name          string `json:"name" form:"name" validate:"required,max=120"`
	School        string `json:"school" form:"school" validate:"max=120"`
	Grade         string `json:"grade" form:"grade" validate:"max=40"`
	Subjects      string `json:"subjects" form:"subjects" validate:"max=255"`
	ParentName    string `json:"parentName" form:"parentName" validate:"max=120"`
	ParentContact string `json:"parentContact" form:"parentContact" validate:"max=64"`
	LocationURL   string `json:"locationUrl" form:"locationUrl" validate:"omitempty,url"`
}

// StudentListQuery filters the student list.
type StudentListQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ExamRequest creates or updates an exam. Score is optional until graded.
type ExamRequest struct {
	StudentID string `json:"studentId" form:"studentId" validate:"required"`
	Title     string `json:"title" form:"title" validate:"required,max=120"`
	Date      string `json:"date" form:"date" validate:"required,civildate"`
	Range     string `json:"range" form:"range" validate:"max=255"`
	Score     *int   `json:"score" form:"score" validate:"omitempty,min=0,max=100"`
}

// ReportQuery selects the export format of a student report.
type ReportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
