/*
Package adcmigrate resolves the applications of a saved application delivery
controller configuration, the text produced by "show ns runningConfig" or
found in ns.conf.

An application is a virtual server, content switching, load balancing or
GSLB, together with everything it references: services, service groups,
servers, monitors, policies, actions, certificates and the other virtual
servers it hands the traffic to. Every application carries the source lines
it was built from, so that it can be migrated or reviewed on its own.

# Stages

A run has three stages:

  - ingest: every line is matched against the grammar of the appliance
    version, and the recognized commands are stored in an object model,
    indexed by command and object name.
  - digest: the virtual servers of each type are resolved from the model,
    following the bindings and the references between the objects.
  - link: references from one application to another, e.g. a content
    switching policy targeting a load balancing virtual server, are
    replaced by a copy of the referenced application, and its lines are
    added to the referencing one.

# Diagnostics

Problems that don't prevent resolving the rest of the configuration are
not errors. Lines not matching their expected pattern, references to
missing objects, and an unknown appliance version are logged and returned
in the diagnostics of the result. The only error of a run is
ErrNoApplications, when the configuration has no virtual servers at all.

# Command line

The adcmigrate command in cmd/adcmigrate reads configurations from files,
URLs or the standard input, and writes the applications as JSON or YAML.
See its -help for the options.
*/
package adcmigrate
