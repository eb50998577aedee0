package spec

// WatchSpec names one operation and the message types its response and
// metadata are expected to hold. Empty types mean "don't unpack".
type WatchSpec struct {
	Name         string `yaml:"name"`
	ResponseType string `yaml:"response_type"` // e.g. "google.protobuf.StringValue"
	MetadataType string `yaml:"metadata_type"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	// Defaults apply to entries that leave a type empty.
	Defaults struct {
		ResponseType string `yaml:"response_type"`
		MetadataType string `yaml:"metadata_type"`
	} `yaml:"defaults"`

	Operations []WatchSpec `yaml:"operations"`
}
