package formats

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// Collada is the top-level COLLADA object. Only the geometry library is
// needed here.
type Collada struct {
	Geometries []ColladaGeometry `xml:"library_geometries>geometry"`
}

type ColladaGeometry struct {
	Mesh ColladaMesh `xml:"mesh"`
	ID   string      `xml:"id,attr"`
	Name string      `xml:"name,attr"`
}

type ColladaMesh struct {
	Sources   []ColladaSource  `xml:"source"`
	Triangles ColladaTriangles `xml:"triangles"`
}

// ColladaSource links to the raw float arrays the primitives index into.
type ColladaSource struct {
	ID     string        `xml:"id,attr"`
	Floats ColladaFloats `xml:"float_array"`
}

type ColladaFloats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the space-separated array of floats.
func (f *ColladaFloats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

type ColladaTriangles struct {
	Material string         `xml:"material,attr"`
	Count    int            `xml:"count,attr"`
	Inputs   []ColladaInput `xml:"input"`
	Index    ColladaIndex   `xml:"p"`
}

type ColladaInput struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   int    `xml:"offset,attr"`
}

type ColladaIndex []int

// UnmarshalXML unmarshals the space-separated index list.
func (ci *ColladaIndex) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.Atoi(r)
		if err != nil {
			return err
		}
		*ci = append(*ci, num)
	}
	return nil
}
