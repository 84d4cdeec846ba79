package cv

import "github.com/google/uuid"

// NewID 生成列表项的唯一标识，测试中可替换。
var NewID = uuid.NewString

// NewEmpty returns the blank template: every text field empty, every list empty.
func NewEmpty() Document {
	doc := Document{}
	doc.Normalize()
	return doc
}

// NewExample returns the example document shown on first run.
func NewExample() Document {
	doc := Document{
		Personal: PersonalInfo{
			FullName: "Jane Doe",
			Tagline:  "Full-Stack Developer | React & Node.js Expert",
			Email:    "jane.doe@example.com",
			Phone:    "+1 (555) 123-4567",
			Website:  "janedoe.dev",
			Location: "San Francisco, CA",
			Bio:      "A passionate developer with 5+ years of experience in building scalable web applications. I thrive in collaborative environments and am always eager to learn new technologies.",
			Religion: "Not specified",
			DOB:      "1995-08-15",
		},
		Experience: []WorkExperience{
			{
				ID:        NewID(),
				JobTitle:  "Senior Software Engineer",
				Company:   "Tech Solutions Inc.",
				StartDate: "2021-01-01",
				IsCurrent: true,
				Description: "- Led the development of a major feature for a client-facing product, resulting in a 20% increase in user engagement.\n" +
					"- Mentored junior developers and conducted code reviews.\n" +
					"- Optimized application performance, reducing page load times by 30%.",
			},
			{
				ID:        NewID(),
				JobTitle:  "Software Engineer",
				Company:   "Innovate Co.",
				StartDate: "2018-06-01",
				EndDate:   "2020-12-31",
				Description: "- Developed and maintained full-stack features for a SaaS platform.\n" +
					"- Collaborated with product managers and designers to translate requirements into technical solutions.\n" +
					"- Wrote unit and integration tests to ensure code quality.",
			},
		},
		Education: []Education{
			{
				ID:          NewID(),
				Degree:      "M.S. in Computer Science",
				Institution: "Stanford University",
				StartDate:   "2016-09-01",
				EndDate:     "2018-05-31",
				Description: "Focused on artificial intelligence and machine learning. Thesis on natural language processing.",
			},
			{
				ID:          NewID(),
				Degree:      "B.S. in Computer Science",
				Institution: "University of California, Berkeley",
				StartDate:   "2012-09-01",
				EndDate:     "2016-05-31",
				Description: "Graduated with honors. Member of the ACM student chapter.",
			},
		},
		Certificates: []Certificate{
			{
				ID:     NewID(),
				Name:   "Certified Kubernetes Administrator (CKA)",
				Issuer: "Cloud Native Computing Foundation",
				Date:   "2022-03-10",
			},
		},
		Hobbies: []Hobby{
			{ID: NewID(), Name: "Hiking"},
			{ID: NewID(), Name: "Photography"},
			{ID: NewID(), Name: "Playing the guitar"},
		},
	}
	doc.Normalize()
	return doc
}
