package catalog

// ManifestName is the manifest file at the root of a reference directory.
const ManifestName = "manifest.yaml"

// DefaultDir is used when no reference directory is configured.
const DefaultDir = "references"

// Position digits run 1..MaxPosition.
const MaxPosition = 12
