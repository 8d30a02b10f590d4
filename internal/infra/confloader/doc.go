// Package confloader loads typed configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. the defaults already present in the target struct
//  2. a YAML file
//  3. environment variables (KVMESH_SECTION_FIELD)
//  4. explicit overrides, usually from command-line flags
//
// Watcher reports edits to the config file so selected settings can be
// reapplied without a restart.
package confloader
