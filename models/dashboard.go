package models

// ComingSoon marks dashboard sections that have no content yet.
const ComingSoon = "Coming Soon"

// DashboardSection is one card on a landing dashboard.
type DashboardSection struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Dashboard is the landing payload for a role.
type Dashboard struct {
	Role     Role               `json:"role"`
	Title    string             `json:"title"`
	Intro    string             `json:"intro"`
	Sections []DashboardSection `json:"sections"`
}

func sections(titles ...string) []DashboardSection {
	out := make([]DashboardSection, len(titles))
	for i, t := range titles {
		out[i] = DashboardSection{Title: t, Status: ComingSoon}
	}
	return out
}

// LandingFor returns the dashboard for role; anything but teacher gets the student one.
func LandingFor(role Role) Dashboard {
	if role == RoleTeacher {
		return Dashboard{
			Role:     RoleTeacher,
			Title:    "Teacher Dashboard",
			Intro:    "Welcome to your teacher dashboard! This page will contain your courses, students, and content management tools.",
			Sections: sections("My Courses", "Students", "Content"),
		}
	}
	return Dashboard{
		Role:     RoleStudent,
		Title:    "Student Dashboard",
		Intro:    "Welcome to your student dashboard! This page will contain your courses, assignments and progress.",
		Sections: sections("My Courses", "Assignments", "Progress"),
	}
}
