// Package device defines the collaborator boundary of the shield: the
// actuators it commands, the sensors it reads and the errors they report.
// Concrete adapters live in the thermostat, purifier and relay subpackages.
package device
