package treefile

// Origin keyfile layout. Every list key is removed rather than written empty.
const (
	GroupOrigin    = "origin"
	GroupPackages  = "packages"
	GroupModules   = "modules"
	GroupOverrides = "overrides"
	GroupRpmostree = "rpmostree"

	KeyRefspec                 = "refspec"
	KeyBaseRefspec             = "baserefspec" // legacy alias, read only
	KeyContainerImageReference = "container-image-reference"
	KeyCustomURL               = "custom-url"
	KeyCustomDescription       = "custom-description"
	KeyOverrideCommit          = "override-commit"
	KeyUnconfiguredState       = "unconfigured-state"

	KeyRequested                  = "requested"
	KeyRequestedLocal             = "requested-local"
	KeyRequestedLocalFileOverride = "requested-local-fileoverride"

	KeyModulesEnable  = "enable"
	KeyModulesInstall = "install"

	KeyOverrideRemove       = "remove"
	KeyOverrideReplaceLocal = "replace-local"

	KeyRegenerateInitramfs = "regenerate-initramfs"
	KeyInitramfsArgs       = "initramfs-args"
	KeyInitramfsEtc        = "initramfs-etc"
	KeyCliwrap             = "ex-cliwrap"
)
