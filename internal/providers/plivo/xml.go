package plivo

import (
	"encoding/xml"
	"strconv"
)

// Response is a Plivo XML call-control document. Elements are emitted in the
// order they were added, which is the order Plivo executes them.
type Response struct {
	XMLName  xml.Name `xml:"Response"`
	Elements []any
}

type Speak struct {
	XMLName xml.Name `xml:"Speak"`
	Text    string   `xml:",chardata"`
}

// GetDigits collects keypad input while playing its nested prompts, then
// requests Action with the collected Digits.
type GetDigits struct {
	XMLName     xml.Name `xml:"GetDigits"`
	Action      string   `xml:"action,attr"`
	Method      string   `xml:"method,attr"`
	Timeout     string   `xml:"timeout,attr"`
	NumDigits   string   `xml:"numDigits,attr"`
	ValidDigits string   `xml:"validDigits,attr,omitempty"`
	Speak       []Speak  `xml:"Speak"`
}

type Dial struct {
	XMLName xml.Name `xml:"Dial"`
	Numbers []Number `xml:"Number"`
}

type Number struct {
	Text string `xml:",chardata"`
}

type GetDigitsOptions struct {
	Action      string
	Timeout     int
	NumDigits   int
	ValidDigits string
}

func NewResponse() *Response { return &Response{} }

func (r *Response) AddSpeak(text string) *Response {
	r.Elements = append(r.Elements, Speak{Text: text})
	return r
}

func (r *Response) AddGetDigits(opts GetDigitsOptions, prompt string) *Response {
	r.Elements = append(r.Elements, GetDigits{
		Action:      opts.Action,
		Method:      "POST",
		Timeout:     strconv.Itoa(opts.Timeout),
		NumDigits:   strconv.Itoa(opts.NumDigits),
		ValidDigits: opts.ValidDigits,
		Speak:       []Speak{{Text: prompt}},
	})
	return r
}

func (r *Response) AddDial(numbers ...string) *Response {
	d := Dial{}
	for _, n := range numbers {
		d.Numbers = append(d.Numbers, Number{Text: n})
	}
	r.Elements = append(r.Elements, d)
	return r
}

// GetDigits returns the first digit collector in the document, if any.
func (r *Response) GetDigits() (GetDigits, bool) {
	for _, e := range r.Elements {
		if g, ok := e.(GetDigits); ok {
			return g, true
		}
	}
	return GetDigits{}, false
}

// Dials returns the numbers of every Dial element in document order.
func (r *Response) Dials() []string {
	var out []string
	for _, e := range r.Elements {
		if d, ok := e.(Dial); ok {
			for _, n := range d.Numbers {
				out = append(out, n.Text)
			}
		}
	}
	return out
}

// Speech returns the text of every Speak element, nested ones included.
func (r *Response) Speech() []string {
	var out []string
	for _, e := range r.Elements {
		switch v := e.(type) {
		case Speak:
			out = append(out, v.Text)
		case GetDigits:
			for _, s := range v.Speak {
				out = append(out, s.Text)
			}
		}
	}
	return out
}

func (r *Response) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "Response"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, el := range r.Elements {
		if err := e.Encode(el); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (r *Response) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var el any
			switch t.Name.Local {
			case "Speak":
				var s Speak
				if err := d.DecodeElement(&s, &t); err != nil {
					return err
				}
				el = s
			case "GetDigits":
				var g GetDigits
				if err := d.DecodeElement(&g, &t); err != nil {
					return err
				}
				el = g
			case "Dial":
				var dl Dial
				if err := d.DecodeElement(&dl, &t); err != nil {
					return err
				}
				el = dl
			default:
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			r.Elements = append(r.Elements, el)
		case xml.EndElement:
			return nil
		}
	}
}

// ToXML renders the document with an XML declaration.
func (r *Response) ToXML() ([]byte, error) {
	b, err := xml.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}

// ParseResponse decodes a Plivo XML document.
func ParseResponse(b []byte) (*Response, error) {
	var r Response
	if err := xml.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
