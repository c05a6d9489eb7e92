package provider

// Capabilities records which optional hooks a provider pair implements.
type Capabilities struct {
	PlatformProvider     bool `json:"platform_provider" yaml:"platform_provider"`
	VersionFormatter     bool `json:"version_formatter" yaml:"version_formatter"`
	MandatoryChecker     bool `json:"mandatory_checker" yaml:"mandatory_checker"`
	ChangeLog            bool `json:"changelog" yaml:"changelog"`
	MinimumVersion       bool `json:"minimum_version" yaml:"minimum_version"`
	Availability         bool `json:"availability" yaml:"availability"`
	SourceLifecycle      bool `json:"source_lifecycle" yaml:"source_lifecycle"`
	DismissCounter       bool `json:"dismiss_counter" yaml:"dismiss_counter"`
	ShownVersionRecorder bool `json:"shown_version_recorder" yaml:"shown_version_recorder"`
	AutoUpdateToggle     bool `json:"auto_update_toggle" yaml:"auto_update_toggle"`
	PreferenceDumper     bool `json:"preference_dumper" yaml:"preference_dumper"`
	Clearer              bool `json:"clearer" yaml:"clearer"`
	StoreLifecycle       bool `json:"store_lifecycle" yaml:"store_lifecycle"`
}

// Probe inspects src and store for optional capabilities.
func Probe(src DataSource, store PreferenceStore) Capabilities {
	var c Capabilities

	_, c.PlatformProvider = src.(PlatformProvider)
	_, c.VersionFormatter = src.(VersionFormatter)
	_, c.MandatoryChecker = src.(MandatoryChecker)
	_, c.ChangeLog = src.(ChangeLogProvider)
	_, c.MinimumVersion = src.(MinimumVersionProvider)
	_, c.Availability = src.(AvailabilityChecker)
	c.SourceLifecycle = hasLifecycle(src)

	_, c.DismissCounter = store.(DismissCounter)
	_, c.ShownVersionRecorder = store.(ShownVersionRecorder)
	_, c.AutoUpdateToggle = store.(AutoUpdateToggle)
	_, c.PreferenceDumper = store.(PreferenceDumper)
	_, c.Clearer = store.(Clearer)
	c.StoreLifecycle = hasLifecycle(store)

	return c
}

func hasLifecycle(v any) bool {
	_, init := v.(Initializer)
	_, dispose := v.(Disposer)
	return init || dispose
}
