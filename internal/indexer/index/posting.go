package index

type Posting struct {
	DocID     string
	Frequency int
	Positions []int
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// StoredDoc keeps a document's fields and token count for the segment doc
// table.
type StoredDoc struct {
	ID     string
	Title  string
	Body   string
	Length int
}
