package calendar

// MonthOutput for GET /calendar/{year}/{month}
type MonthOutput struct {
	Body Month
}

// MarkOutput for PATCH /calendar/{date}
type MarkOutput struct {
	Body Mark
}
