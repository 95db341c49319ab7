package dto

// RecomputeRequest optionally narrows a recompute to one section.
type RecomputeRequest struct {
	CourseSectionID string `json:"course_section_id"`
}

// RecomputePayload is the queued unit of recompute work. An empty
// CourseSectionID means every section of the assignment.
type RecomputePayload struct {
	AssignmentID    string `json:"assignment_id"`
	CourseSectionID string `json:"course_section_id,omitempty"`
}

// RecomputeAccepted acknowledges a queued recompute job.
type RecomputeAccepted struct {
	JobID           string `json:"job_id"`
	AssignmentID    string `json:"assignment_id"`
	CourseSectionID string `json:"course_section_id,omitempty"`
}
