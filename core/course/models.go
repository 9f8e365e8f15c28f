package course

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/soko/core"
)

type (
	// Course is the authored content tree plus its marketplace state.
	// Wire names match the SPA's expectations.
	Course struct {
		ID          string    `json:"_id"`
		Title       string    `json:"courseTitle"`
		Description string    `json:"courseDescription"`
		Price       float64   `json:"coursePrice"`
		Discount    float64   `json:"discount"` // percent, 0-100
		Thumbnail   string    `json:"courseThumbnail"`
		Published   bool      `json:"isPublished"`
		Educator    string    `json:"educator"` // owning educator's user id
		Content     []Chapter `json:"courseContent"`
		// EnrolledStudents only grows; there is no unenroll path.
		EnrolledStudents []string  `json:"enrolledStudents"`
		Ratings          []Rating  `json:"courseRatings"`
		CreatedAt        time.Time `json:"createdAt"`
		UpdatedAt        time.Time `json:"updatedAt"`
	}

	Chapter struct {
		ID       string    `json:"chapterId"`
		Order    int       `json:"chapterOrder"`
		Title    string    `json:"chapterTitle"`
		Lectures []Lecture `json:"chapterContent"`
	}

	Lecture struct {
		ID          string  `json:"lectureId"`
		Title       string  `json:"lectureTitle"`
		Duration    float64 `json:"lectureDuration"` // minutes
		URL         string  `json:"lectureUrl"`
		FreePreview bool    `json:"isPreviewFree"`
		Order       int     `json:"lectureOrder"`
	}

	Rating struct {
		UserID string `json:"userId"`
		Value  int    `json:"rating"`
	}
)

// DiscountedPrice is price − price·discount/100, rounded to 2 decimal places.
func (c *Course) DiscountedPrice() decimal.Decimal {
	price := decimal.NewFromFloat(c.Price)
	discount := decimal.NewFromFloat(c.Discount)
	return price.Sub(price.Mul(discount).Div(decimal.NewFromInt(100))).Round(2)
}

func (c *Course) IsEnrolled(userID string) bool {
	for _, id := range c.EnrolledStudents {
		if id == userID {
			return true
		}
	}
	return false
}

// HasLecture reports whether lectureID exists anywhere in the content tree.
func (c *Course) HasLecture(lectureID string) bool {
	for _, ch := range c.Content {
		for _, lec := range ch.Lectures {
			if lec.ID == lectureID {
				return true
			}
		}
	}
	return false
}

// LectureCount is the total number of lectures across all chapters.
func (c *Course) LectureCount() int {
	var n int
	for _, ch := range c.Content {
		n += len(ch.Lectures)
	}
	return n
}

// StripPaidLectureURLs blanks lecture URLs that are not free previews,
// for catalog views shown before purchase.
func (c *Course) StripPaidLectureURLs() {
	for i := range c.Content {
		for j := range c.Content[i].Lectures {
			if !c.Content[i].Lectures[j].FreePreview {
				c.Content[i].Lectures[j].URL = ""
			}
		}
	}
}

// NewCourse contains information needed to author a new Course.
type NewCourse struct {
	Title       string       `json:"courseTitle" validate:"required"`
	Description string       `json:"courseDescription"`
	Price       float64      `json:"coursePrice" validate:"gte=0"`
	Discount    float64      `json:"discount" validate:"gte=0,lte=100"`
	Published   bool         `json:"isPublished"`
	Content     []NewChapter `json:"courseContent" validate:"dive"`
}

type NewChapter struct {
	Order    int          `json:"chapterOrder"`
	Title    string       `json:"chapterTitle" validate:"required"`
	Lectures []NewLecture `json:"chapterContent" validate:"dive"`
}

type NewLecture struct {
	Title       string  `json:"lectureTitle" validate:"required"`
	Duration    float64 `json:"lectureDuration" validate:"gte=0"`
	URL         string  `json:"lectureUrl" validate:"required,url"`
	FreePreview bool    `json:"isPreviewFree"`
	Order       int     `json:"lectureOrder"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}
