package models

// Book is a catalogued book. Descriptive fields do not change after creation;
// users reference books, they never own the record itself.
type Book struct {
	ID        int64  `json:"id"        bson:"_id"`
	Genre     string `json:"genre"     bson:"genre"`
	Author    string `json:"author"    bson:"author"`
	Image     string `json:"image"     bson:"image"`
	Title     string `json:"title"     bson:"title"`
	Subtitle  string `json:"subtitle"  bson:"subtitle"`
	Publisher string `json:"publisher" bson:"publisher"`
	Year      string `json:"year"      bson:"year"`
	Pages     int    `json:"pages"     bson:"pages"`
	ISBN      string `json:"isbn"      bson:"isbn"`
	CoverKey  string `json:"-"         bson:"cover_key,omitempty"` // object key of the uploaded cover
}

// CreateBookRequest is the JSON body for POST /api/books.
type CreateBookRequest struct {
	Genre     string `json:"genre"`
	Author    string `json:"author"    validate:"required"`
	Image     string `json:"image"     validate:"required"`
	Title     string `json:"title"     validate:"required"`
	Subtitle  string `json:"subtitle"  validate:"required"`
	Publisher string `json:"publisher" validate:"required"`
	Year      string `json:"year"      validate:"required,numeric,len=4"`
	Pages     int    `json:"pages"     validate:"required,gt=0"`
	ISBN      string `json:"isbn"      validate:"required"`
}

// Book builds the catalog entry described by the request.
func (r CreateBookRequest) Book() *Book {
	return &Book{
		Genre:     r.Genre,
		Author:    r.Author,
		Image:     r.Image,
		Title:     r.Title,
		Subtitle:  r.Subtitle,
		Publisher: r.Publisher,
		Year:      r.Year,
		Pages:     r.Pages,
		ISBN:      r.ISBN,
	}
}
