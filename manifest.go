package axml

// Manifest holds the facts most consumers want from a decoded manifest tree.
// It is a pure tree query over the Element tree, no further binary decoding
// is involved.
type Manifest struct {
	Package string

	Activities []string
	Services   []string
	Providers  []string
	Receivers  []string

	// Permissions the app declares itself and permissions it requests.
	DefinedPermissions   []string
	RequestedPermissions []string

	// Activity owning the android.intent.action.MAIN intent filter, if any.
	MainActivity string
}

const actionMain = "android.intent.action.MAIN"

// Summarize extracts the package name, component lists and permissions from
// a decoded manifest tree.
func Summarize(root *Element) *Manifest {
	m := &Manifest{
		Package: root.Attributes["package"],
	}

	for _, e := range root.ElementsByType("activity") {
		name := e.Attributes["android:name"]
		m.Activities = append(m.Activities, name)

		if m.MainActivity == "" && hasMainAction(e) {
			m.MainActivity = name
		}
	}

	for _, e := range root.ElementsByType("service") {
		m.Services = append(m.Services, e.Attributes["android:name"])
	}

	for _, e := range root.ElementsByType("provider") {
		m.Providers = append(m.Providers, e.Attributes["android:name"])
	}

	for _, e := range root.ElementsByType("receiver") {
		m.Receivers = append(m.Receivers, e.Attributes["android:name"])
	}

	for _, e := range root.ElementsByType("permission") {
		m.DefinedPermissions = append(m.DefinedPermissions, e.Attributes["android:name"])
	}

	for _, e := range root.ElementsByType("uses-permission") {
		m.RequestedPermissions = append(m.RequestedPermissions, e.Attributes["android:name"])
	}

	return m
}

func hasMainAction(activity *Element) bool {
	for _, action := range activity.ElementsByType("action") {
		if action.Attributes["android:name"] == actionMain {
			return true
		}
	}
	return false
}

// ExposedComponents returns the activities, services, providers and
// receivers other apps can reach, keyed by element type. Returns nil when
// the application element is disabled, which disables every component.
func ExposedComponents(root *Element) map[string][]*Element {
	apps := root.ElementsByType("application")
	if len(apps) == 0 {
		return nil
	}

	if apps[0].Attributes["android:enabled"] == "false" {
		return nil
	}

	components := make(map[string][]*Element)
	for _, elementType := range []string{"activity", "service", "provider", "receiver"} {
		var exposed []*Element
		for _, e := range root.ElementsByType(elementType) {
			if componentExposed(e) {
				exposed = append(exposed, e)
			}
		}
		components[elementType] = exposed
	}

	return components
}

// componentExposed reports whether a component is both enabled and exported.
// Explicit attribute values win; when android:exported is absent, the
// component is exported by default only if it declares an intent filter, the
// assumption being that a filter means it is meant to be reachable.
func componentExposed(component *Element) bool {
	if component.Attributes["android:enabled"] == "false" {
		return false
	}

	if exported, ok := component.Attributes["android:exported"]; ok {
		return exported != "false"
	}

	for _, child := range component.Children {
		if child.Type == "intent-filter" {
			return true
		}
	}
	return false
}
