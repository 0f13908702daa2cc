package export

type Option func(*options)

type options struct {
	separator  rune
	returnData bool
	rename     func(string) (string, bool)
}

func newOptions(opts ...Option) options {
	o := options{
		separator: ',',
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithSeparator(sep rune) Option {
	return func(o *options) {
		o.separator = sep
	}
}

// WithReturnData makes QueryToCSV return the exported table.
func WithReturnData() Option {
	return func(o *options) {
		o.returnData = true
	}
}

// WithRename renames columns before the table is written.
func WithRename(rename func(string) (string, bool)) Option {
	return func(o *options) {
		o.rename = rename
	}
}
