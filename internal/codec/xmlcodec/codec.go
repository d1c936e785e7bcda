package xmlcodec

// Codec implements backup.BookCodec, backup.StyleCodec and
// backup.PreferenceCodec for the tag grammar.
type Codec struct{}

func New() *Codec {
	return &Codec{}
}
