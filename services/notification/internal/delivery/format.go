package delivery

import (
	"fmt"
	"strings"

	"fleetwatch/services/notification/internal/entity"
)

func subject(n entity.Notification) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Priority)), n.Title)
}

func link(baseURL, actionURL string) string {
	if actionURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + actionURL
}
