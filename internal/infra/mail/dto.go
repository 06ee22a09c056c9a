package mail

type MessageEmailData struct {
	Subject    string
	Name       string
	Paragraphs []string
	Buttons    []LinkButton
}

type LinkButton struct {
	Label string
	URL   string
}
