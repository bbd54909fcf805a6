package mappers

import (
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/infrastructure/persistence/models"
)

// ResourceColumn maps each metered resource to its usage_records column.
var ResourceColumn = map[vo.ResourceType]string{
	vo.ResourceContacts:    "contacts_count",
	vo.ResourceTemplates:   "templates_count",
	vo.ResourceCampaigns:   "campaigns_count",
	vo.ResourceMessages:    "messages_sent",
	vo.ResourceTeamMembers: "team_members_count",
	vo.ResourceNumbers:     "numbers_count",
}

// CategoryColumn maps each message category to its breakdown column.
var CategoryColumn = map[vo.MessageCategory]string{
	vo.MessageCategoryMarketing:      "marketing_messages",
	vo.MessageCategoryUtility:        "utility_messages",
	vo.MessageCategoryAuthentication: "auth_messages",
}

type UsageRecordMapper interface {
	ToEntity(model *models.UsageRecordModel) *usage.UsageRecord
	ToModel(entity *usage.UsageRecord) *models.UsageRecordModel
	ToEntities(models []*models.UsageRecordModel) []*usage.UsageRecord
}

type UsageRecordMapperImpl struct{}

func NewUsageRecordMapper() UsageRecordMapper {
	return &UsageRecordMapperImpl{}
}

func (m *UsageRecordMapperImpl) ToEntity(model *models.UsageRecordModel) *usage.UsageRecord {
	if model == nil {
		return nil
	}
	return usage.ReconstructUsageRecord(usage.ReconstructParams{
		ID:             model.ID,
		UserID:         model.UserID,
		SubscriptionID: model.SubscriptionID,
		Month:          model.Month,
		Counters: map[vo.ResourceType]int64{
			vo.ResourceContacts:    model.ContactsCount,
			vo.ResourceTemplates:   model.TemplatesCount,
			vo.ResourceCampaigns:   model.CampaignsCount,
			vo.ResourceMessages:    model.MessagesSent,
			vo.ResourceTeamMembers: model.TeamMembersCount,
			vo.ResourceNumbers:     model.NumbersCount,
		},
		MessagesByCat: map[vo.MessageCategory]int64{
			vo.MessageCategoryMarketing:      model.MarketingMessages,
			vo.MessageCategoryUtility:        model.UtilityMessages,
			vo.MessageCategoryAuthentication: model.AuthMessages,
		},
		LastResetAt: model.LastResetAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	})
}

func (m *UsageRecordMapperImpl) ToModel(entity *usage.UsageRecord) *models.UsageRecordModel {
	if entity == nil {
		return nil
	}
	byCat := entity.MessagesByCategory()
	return &models.UsageRecordModel{
		ID:                entity.ID(),
		UserID:            entity.UserID(),
		Month:             entity.Month(),
		SubscriptionID:    entity.SubscriptionID(),
		ContactsCount:     entity.Counter(vo.ResourceContacts),
		TemplatesCount:    entity.Counter(vo.ResourceTemplates),
		CampaignsCount:    entity.Counter(vo.ResourceCampaigns),
		MessagesSent:      entity.Counter(vo.ResourceMessages),
		TeamMembersCount:  entity.Counter(vo.ResourceTeamMembers),
		NumbersCount:      entity.Counter(vo.ResourceNumbers),
		MarketingMessages: byCat[vo.MessageCategoryMarketing],
		UtilityMessages:   byCat[vo.MessageCategoryUtility],
		AuthMessages:      byCat[vo.MessageCategoryAuthentication],
		LastResetAt:       entity.LastResetAt(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}
}

func (m *UsageRecordMapperImpl) ToEntities(usageModels []*models.UsageRecordModel) []*usage.UsageRecord {
	entities := make([]*usage.UsageRecord, 0, len(usageModels))
	for _, model := range usageModels {
		entities = append(entities, m.ToEntity(model))
	}
	return entities
}
