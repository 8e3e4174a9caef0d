package settings

// PortfolioKey is the settings key holding the durable portfolio sequence.
const PortfolioKey = "your_bags"

// SettingDescriptions documents the keys this application writes.
var SettingDescriptions = map[string]string{
	PortfolioKey: "Ordered list of held coins as JSON [{\"id\",\"name\"}]",
}

// DescriptionFor returns the description registered for key, or nil.
func DescriptionFor(key string) *string {
	if d, ok := SettingDescriptions[key]; ok {
		return &d
	}
	return nil
}
