package zededa

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AppInstance is the subset of the app instance object the formatter renders.
type AppInstance struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	RunState       string    `json:"runState"`
	AppType        string    `json:"appType"`
	DeploymentType string    `json:"deploymentType"`
	DeviceID       string    `json:"deviceId"`
	DeviceName     string    `json:"deviceName"`
	ProjectName    string    `json:"projectName"`
	AppName        string    `json:"appName"`
	ErrInfo        []ErrInfo `json:"errInfo"`
}

// ErrInfo is one error record attached to an app instance.
type ErrInfo struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Timestamp   string `json:"timestamp"`
}

// FormatAppInstance renders one app instance as the fixed text block users
// and the reasoning model see.
func FormatAppInstance(inst AppInstance) string {
	errDescription := "No error"
	errSeverity := "No error"
	errTimestamp := "No error"
	if len(inst.ErrInfo) > 0 {
		errDescription = inst.ErrInfo[0].Description
		errSeverity = inst.ErrInfo[0].Severity
		errTimestamp = inst.ErrInfo[0].Timestamp
	}

	return fmt.Sprintf(`
Device Id: %s
Device Name: %s
App Id: %s
App Name: %s
App Status: %s
App Type: %s
Deployment Type: %s
Project Name: %s
App Bundle Name: %s
Error Description: %s
Error Severity: %s
Error Timestamp: %s
`,
		inst.DeviceID, inst.DeviceName, inst.ID, inst.Name, inst.RunState,
		inst.AppType, inst.DeploymentType, inst.ProjectName, inst.AppName,
		errDescription, errSeverity, errTimestamp)
}

// appInstanceList is the paged list envelope the status-config endpoint returns.
type appInstanceList struct {
	List []AppInstance `json:"list"`
}

// FormatAppInstanceList renders a raw paged app instance response as joined
// text blocks. It reports whether the payload carried a list at all; an
// empty list is a valid payload.
func FormatAppInstanceList(raw json.RawMessage) (string, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", false
	}
	listRaw, ok := envelope["list"]
	if !ok {
		return "", false
	}

	var instances []AppInstance
	if err := json.Unmarshal(listRaw, &instances); err != nil {
		return "", false
	}
	if len(instances) == 0 {
		return "No app instances found.", true
	}

	formatted := make([]string, len(instances))
	for i, inst := range instances {
		formatted[i] = FormatAppInstance(inst)
	}
	return strings.Join(formatted, "\n--\n"), true
}
