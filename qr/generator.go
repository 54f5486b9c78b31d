package qr

// Image is a rendered QR code.
type Image struct {
	PNG     []byte
	Level   Level
	Version int
	Modules int // modules per side, quiet zone excluded
	Scale   int // pixels per module
	Pixels  int // image width and height
}

// Generator runs the text -> symbol -> bitmap -> PNG pipeline.
type Generator struct {
	// Border is the quiet zone in modules. Negative values mean none.
	Border int
	// Scale overrides the automatic pixels-per-module when > 0.
	Scale int
}

// NewGenerator returns a Generator with the default border and automatic
// scaling.
func NewGenerator() *Generator {
	return &Generator{Border: DefaultBorder}
}

// Generate encodes text and returns the PNG with its metadata.
func (g *Generator) Generate(text string) (*Image, error) {
	sym, err := Encode(text)
	if err != nil {
		return nil, err
	}

	scale := g.Scale
	if scale <= 0 {
		scale = ScaleFor(sym.Size())
	}
	border := g.Border
	if border < 0 {
		border = 0
	}

	img := Rasterize(sym.Modules, scale, border)
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	return &Image{
		PNG:     data,
		Level:   sym.Level,
		Version: sym.Version,
		Modules: sym.Size(),
		Scale:   scale,
		Pixels:  img.Bounds().Dx(),
	}, nil
}
