package metrics

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
