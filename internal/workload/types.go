package workload

// Discipline is one teaching-load entry. Every numeric field is 0 when its
// source cell is absent or non-numeric.
type Discipline struct {
	Name      string `json:"name"`
	Faculty   string `json:"faculty"`
	Specialty string `json:"specialty"`
	Course    int    `json:"course"`
	Semester  int    `json:"semester"`
	Students  int    `json:"students"`

	LecturesFullTime      int `json:"lecturesFullTime"`
	LecturesPartTime      int `json:"lecturesPartTime"`
	PracticalsFullTime    int `json:"practicalsFullTime"`
	PracticalsPartTime    int `json:"practicalsPartTime"`
	LabsFullTime          int `json:"labsFullTime"`
	LabsPartTime          int `json:"labsPartTime"`
	ConsultationsFullTime int `json:"consultationsFullTime"`
	ConsultationsPartTime int `json:"consultationsPartTime"`
	ExamsFullTime         int `json:"examsFullTime"`
	ExamsPartTime         int `json:"examsPartTime"`
	CreditsFullTime       int `json:"creditsFullTime"`
	CreditsPartTime       int `json:"creditsPartTime"`

	ControlWorks        int `json:"controlWorks"`
	CourseWorks         int `json:"courseWorks"`
	ThesisWorks         int `json:"thesisWorks"`
	PedPractice         int `json:"pedPractice"`
	EducationalPractice int `json:"educationalPractice"`
	ProductionPractice  int `json:"productionPractice"`
	StateExams          int `json:"stateExams"`
	PostgraduateStudies int `json:"postgraduateStudies"`
	Other               int `json:"other"`
}

// Signatures maps a signature key (KeyDean, KeyDepartmentHead) to the
// signatory found in the document text. Keys that were not found are absent.
type Signatures map[string]string

// Result is the parsed form of one workload document.
type Result struct {
	Metadata    Signatures   `json:"metadata"`
	Disciplines []Discipline `json:"disciplines"`
}
