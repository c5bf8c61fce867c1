package workload

// Semester is the academic half-year a discipline row belongs to.
type Semester int

const (
	FirstSemester  Semester = 1
	SecondSemester Semester = 2
)

// semesterState starts in the first semester and moves to the second on the
// first boundary row. It never moves back.
type semesterState struct {
	current Semester
}

func newSemesterState() semesterState {
	return semesterState{current: FirstSemester}
}

// advance applies a boundary row and reports whether the state changed.
func (s *semesterState) advance() bool {
	if s.current == SecondSemester {
		return false
	}
	s.current = SecondSemester
	return true
}
