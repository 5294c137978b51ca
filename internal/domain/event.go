package domain

// EventTypeLinkMetadataUpdated is the type of the event emitted after a link
// has been resolved.
const EventTypeLinkMetadataUpdated = "link_metadata_updated"

// MetadataUpdatedEvent is published to the channel of the content's
// container. It is never persisted.
type MetadataUpdatedEvent struct {
	Type string              `json:"type"`
	Data MetadataUpdatedData `json:"data"`
}

// MetadataUpdatedData is the payload of a MetadataUpdatedEvent.
type MetadataUpdatedData struct {
	ContentID string    `json:"content_id"`
	LinkID    string    `json:"link_id"`
	Metadata  *Metadata `json:"metadata"`
}

// NewMetadataUpdatedEvent builds the event for a resolved link.
func NewMetadataUpdatedEvent(contentID, linkID string, md *Metadata) MetadataUpdatedEvent {
	return MetadataUpdatedEvent{
		Type: EventTypeLinkMetadataUpdated,
		Data: MetadataUpdatedData{
			ContentID: contentID,
			LinkID:    linkID,
			Metadata:  md,
		},
	}
}
