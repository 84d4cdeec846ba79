// Package cv holds the résumé document model and its in-place mutations.
package cv

// PersonalInfo 是文档中唯一的个人信息块。
type PersonalInfo struct {
	FullName string `json:"fullName"`
	// Photo 为 data URI 或已上传资源的 object key，空字符串表示没有照片。
	Photo    string `json:"photo"`
	Tagline  string `json:"tagline"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Location string `json:"location"`
	Bio      string `json:"bio"`
	Religion string `json:"religion"`
	DOB      string `json:"dob"`
}

// WorkExperience describes one job. When IsCurrent is set EndDate is ignored.
type WorkExperience struct {
	ID          string `json:"id"`
	JobTitle    string `json:"jobTitle"`
	Company     string `json:"company"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	IsCurrent   bool   `json:"isCurrent"`
	Description string `json:"description"`
}

type Education struct {
	ID          string `json:"id"`
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

type Certificate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

type Hobby struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PortfolioItem 只有在 Image 与 ProjectName 都非空时才会出现在作品集页。
type PortfolioItem struct {
	ID          string `json:"id"`
	ProjectName string `json:"projectName"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Year        string `json:"year"`
}

// Document is the root aggregate: one PersonalInfo and five ordered lists.
// It is the unit of persistence and the unit handed to rendering.
type Document struct {
	Personal     PersonalInfo     `json:"personal"`
	Experience   []WorkExperience `json:"experience"`
	Education    []Education      `json:"education"`
	Certificates []Certificate    `json:"certificates"`
	Hobbies      []Hobby          `json:"hobbies"`
	Portfolio    []PortfolioItem  `json:"portfolio"`
}

// Clone returns a deep copy that shares no slices with d.
func (d Document) Clone() Document {
	out := d
	out.Experience = append(make([]WorkExperience, 0, len(d.Experience)), d.Experience...)
	out.Education = append(make([]Education, 0, len(d.Education)), d.Education...)
	out.Certificates = append(make([]Certificate, 0, len(d.Certificates)), d.Certificates...)
	out.Hobbies = append(make([]Hobby, 0, len(d.Hobbies)), d.Hobbies...)
	out.Portfolio = append(make([]PortfolioItem, 0, len(d.Portfolio)), d.Portfolio...)
	return out
}

// Normalize replaces nil lists with empty ones so the JSON form never carries null.
func (d *Document) Normalize() {
	if d.Experience == nil {
		d.Experience = []WorkExperience{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Certificates == nil {
		d.Certificates = []Certificate{}
	}
	if d.Hobbies == nil {
		d.Hobbies = []Hobby{}
	}
	if d.Portfolio == nil {
		d.Portfolio = []PortfolioItem{}
	}
}

// ValidPortfolio returns the items that qualify for the portfolio page.
func (d Document) ValidPortfolio() []PortfolioItem {
	var items []PortfolioItem
	for _, item := range d.Portfolio {
		if item.Image != "" && item.ProjectName != "" {
			items = append(items, item)
		}
	}
	return items
}

// HasPortfolioPage reports whether a second (portfolio) page is rendered.
func (d Document) HasPortfolioPage() bool {
	return len(d.ValidPortfolio()) > 0
}
