package valueobjects

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownResourceType    = errors.New("unknown resource type")
	ErrUnknownMessageCategory = errors.New("unknown message category")
)

// ResourceType is the closed set of metered resources.
type ResourceType string

const (
	ResourceContacts    ResourceType = "contacts"
	ResourceTemplates   ResourceType = "templates"
	ResourceCampaigns   ResourceType = "campaigns"
	ResourceMessages    ResourceType = "messages"
	ResourceTeamMembers ResourceType = "team_members"
	ResourceNumbers     ResourceType = "numbers"
)

func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceContacts,
		ResourceTemplates,
		ResourceCampaigns,
		ResourceMessages,
		ResourceTeamMembers,
		ResourceNumbers,
	}
}

// ParseResourceType accepts snake_case or kebab-case in any letter case.
func ParseResourceType(value string) (ResourceType, error) {
	rt := ResourceType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	if !rt.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, value)
	}
	return rt, nil
}

func (r ResourceType) String() string {
	return string(r)
}

func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceContacts, ResourceTemplates, ResourceCampaigns, ResourceMessages, ResourceTeamMembers, ResourceNumbers:
		return true
	}
	return false
}

// ResetsMonthly reports whether the counter starts from zero each month.
// Contacts, templates, team members and numbers are standing totals.
func (r ResourceType) ResetsMonthly() bool {
	return r == ResourceCampaigns || r == ResourceMessages
}

// MessageCategory splits the messages counter for per-category pricing.
type MessageCategory string

const (
	MessageCategoryMarketing      MessageCategory = "marketing"
	MessageCategoryUtility        MessageCategory = "utility"
	MessageCategoryAuthentication MessageCategory = "authentication"
)

func AllMessageCategories() []MessageCategory {
	return []MessageCategory{MessageCategoryMarketing, MessageCategoryUtility, MessageCategoryAuthentication}
}

// ParseMessageCategory returns "" for empty input: the category is optional.
func ParseMessageCategory(value string) (MessageCategory, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", nil
	}
	c := MessageCategory(v)
	switch c {
	case MessageCategoryMarketing, MessageCategoryUtility, MessageCategoryAuthentication:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMessageCategory, value)
}
