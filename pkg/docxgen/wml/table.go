package wml

import "encoding/xml"

// Table represents a w:tbl element.
type Table struct {
	XMLName    xml.Name        `xml:"w:tbl"`
	Properties TableProperties `xml:"w:tblPr"`
	Grid       TableGrid       `xml:"w:tblGrid"`
	Rows       []*TableRow
}

func (t *Table) isBlock() {}

// TableProperties represents w:tblPr.
type TableProperties struct {
	Style *Val  `xml:"w:tblStyle,omitempty"`
	Width Width `xml:"w:tblW"`
}

// Width represents w:tblW and w:tcW.
type Width struct {
	Value int    `xml:"w:w,attr"`
	Type  string `xml:"w:type,attr"`
}

// TableGrid represents w:tblGrid.
type TableGrid struct {
	Columns []GridColumn `xml:"w:gridCol"`
}

// GridColumn represents one w:gridCol.
type GridColumn struct {
	Width int `xml:"w:w,attr"`
}

// TableRow represents a w:tr element.
type TableRow struct {
	XMLName xml.Name `xml:"w:tr"`
	Cells   []*TableCell
}

// TableCell represents a w:tc element. A cell always ends up holding at
// least one paragraph.
type TableCell struct {
	Properties *TableCellProperties
	Blocks     []Block
}

// TableCellProperties represents w:tcPr.
type TableCellProperties struct {
	Width Width `xml:"w:tcW"`
}

// NewTable allocates a rows x cols table spread over contentWidth twips.
// Every cell starts with one empty paragraph.
func NewTable(rows, cols, contentWidth int) *Table {
	t := &Table{
		Properties: TableProperties{Width: Width{Value: 0, Type: "auto"}},
	}
	colWidth := 0
	if cols > 0 {
		colWidth = contentWidth / cols
	}
	for c := 0; c < cols; c++ {
		t.Grid.Columns = append(t.Grid.Columns, GridColumn{Width: colWidth})
	}
	for r := 0; r < rows; r++ {
		row := &TableRow{}
		for c := 0; c < cols; c++ {
			row.Cells = append(row.Cells, &TableCell{
				Properties: &TableCellProperties{Width: Width{Value: colWidth, Type: "dxa"}},
				Blocks:     []Block{&Paragraph{}},
			})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SetStyle sets the table style id.
func (t *Table) SetStyle(style string) {
	if style != "" {
		t.Properties.Style = &Val{Val: style}
	}
}

// Cell returns the cell at row r, column c.
func (t *Table) Cell(r, c int) *TableCell {
	return t.Rows[r].Cells[c]
}

// ClearPlaceholder removes the empty paragraph a new cell starts with.
func (c *TableCell) ClearPlaceholder() {
	if len(c.Blocks) == 1 {
		if p, ok := c.Blocks[0].(*Paragraph); ok && len(p.Content) == 0 && p.Properties == nil {
			c.Blocks = nil
		}
	}
}

// AddBlock appends content to the cell.
func (c *TableCell) AddBlock(b Block) {
	c.Blocks = append(c.Blocks, b)
}

// MarshalXML writes the cell, adding an empty paragraph when the cell
// would otherwise not end with one.
func (c *TableCell) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:tc"}
	start.Attr = nil
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if c.Properties != nil {
		if err := e.EncodeElement(c.Properties, xml.StartElement{Name: xml.Name{Local: "w:tcPr"}}); err != nil {
			return err
		}
	}
	for _, b := range c.Blocks {
		if err := e.Encode(b); err != nil {
			return err
		}
	}
	if len(c.Blocks) == 0 {
		if err := e.Encode(&Paragraph{}); err != nil {
			return err
		}
	} else if _, ok := c.Blocks[len(c.Blocks)-1].(*Paragraph); !ok {
		if err := e.Encode(&Paragraph{}); err != nil {
			return err
		}
	}
	return e.EncodeToken(xml.EndElement{Name: start.Name})
}
