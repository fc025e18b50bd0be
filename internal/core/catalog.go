package core

// Standard types every store adapter seeds on open. IDs are assigned by the store.

// CommentAttributeName is the attribute appended for a file's fixed comment.
const CommentAttributeName = "TSK_COMMENT"

// DomainAttributeName is the attribute whose values are reduced to a domain before coercion.
const DomainAttributeName = "TSK_DOMAIN"

// CustomRecordTypes are registered by the mapping loader before any lookup.
var CustomRecordTypes = map[string]string{
	"TSK_IP_DHCP": "DHCP Information",
}

var StandardRecordTypes = []RecordType{
	{Name: "TSK_WEB_BOOKMARK", DisplayName: "Web Bookmarks"},
	{Name: "TSK_WEB_COOKIE", DisplayName: "Web Cookies"},
	{Name: "TSK_WEB_HISTORY", DisplayName: "Web History"},
	{Name: "TSK_WEB_DOWNLOAD", DisplayName: "Web Downloads"},
	{Name: "TSK_WEB_SEARCH_QUERY", DisplayName: "Web Search"},
	{Name: "TSK_RECENT_OBJECT", DisplayName: "Recent Documents"},
	{Name: "TSK_INSTALLED_PROG", DisplayName: "Installed Programs"},
	{Name: "TSK_CONTACT", DisplayName: "Contacts"},
	{Name: "TSK_MESSAGE", DisplayName: "Messages"},
	{Name: "TSK_CALLLOG", DisplayName: "Call Logs"},
	{Name: "TSK_DEVICE_INFO", DisplayName: "Device Info"},
	{Name: "TSK_WIFI_NETWORK", DisplayName: "Wireless Networks"},
	{Name: "TSK_BLUETOOTH_PAIRING", DisplayName: "Bluetooth Pairings"},
	{Name: "TSK_GPS_TRACKPOINT", DisplayName: "GPS Trackpoints"},
	{Name: "TSK_PROG_RUN", DisplayName: "Run Programs"},
	{Name: "TSK_ACCOUNT", DisplayName: "Accounts"},
}

var StandardAttributeTypes = []AttributeType{
	{Name: "TSK_NAME", DisplayName: "Name", Kind: KindString},
	{Name: "TSK_TITLE", DisplayName: "Title", Kind: KindString},
	{Name: "TSK_URL", DisplayName: "URL", Kind: KindString},
	{Name: "TSK_DOMAIN", DisplayName: "Domain", Kind: KindString},
	{Name: "TSK_PATH", DisplayName: "Path", Kind: KindString},
	{Name: "TSK_TEXT", DisplayName: "Text", Kind: KindString},
	{Name: "TSK_VALUE", DisplayName: "Value", Kind: KindString},
	{Name: "TSK_COMMENT", DisplayName: "Comment", Kind: KindString},
	{Name: "TSK_PROG_NAME", DisplayName: "Program Name", Kind: KindString},
	{Name: "TSK_USER_NAME", DisplayName: "User Name", Kind: KindString},
	{Name: "TSK_PHONE_NUMBER", DisplayName: "Phone Number", Kind: KindString},
	{Name: "TSK_PHONE_NUMBER_FROM", DisplayName: "From Phone Number", Kind: KindString},
	{Name: "TSK_PHONE_NUMBER_TO", DisplayName: "To Phone Number", Kind: KindString},
	{Name: "TSK_DIRECTION", DisplayName: "Direction", Kind: KindString},
	{Name: "TSK_MSG_ID", DisplayName: "Message ID", Kind: KindString},
	{Name: "TSK_SUBJECT", DisplayName: "Subject", Kind: KindString},
	{Name: "TSK_DEVICE_ID", DisplayName: "Device ID", Kind: KindString},
	{Name: "TSK_DEVICE_NAME", DisplayName: "Device Name", Kind: KindString},
	{Name: "TSK_MAC_ADDRESS", DisplayName: "MAC Address", Kind: KindString},
	{Name: "TSK_IP_ADDRESS", DisplayName: "IP Address", Kind: KindString},
	{Name: "TSK_SSID", DisplayName: "SSID", Kind: KindString},
	{Name: "TSK_ATTACHMENTS", DisplayName: "Message Attachments", Kind: KindJSON},
	{Name: "TSK_COUNT", DisplayName: "Count", Kind: KindInteger},
	{Name: "TSK_BYTES_SENT", DisplayName: "Bytes Sent", Kind: KindLong},
	{Name: "TSK_BYTES_RECEIVED", DisplayName: "Bytes Received", Kind: KindLong},
	{Name: "TSK_GEO_LATITUDE", DisplayName: "Latitude", Kind: KindDouble},
	{Name: "TSK_GEO_LONGITUDE", DisplayName: "Longitude", Kind: KindDouble},
	{Name: "TSK_READ_STATUS", DisplayName: "Read", Kind: KindByte},
	{Name: "TSK_DATETIME", DisplayName: "Date/Time", Kind: KindDateTime},
	{Name: "TSK_DATETIME_ACCESSED", DisplayName: "Date Accessed", Kind: KindDateTime},
	{Name: "TSK_DATETIME_CREATED", DisplayName: "Date Created", Kind: KindDateTime},
	{Name: "TSK_DATETIME_START", DisplayName: "Start Date/Time", Kind: KindDateTime},
	{Name: "TSK_DATETIME_END", DisplayName: "End Date/Time", Kind: KindDateTime},
	{Name: "TSK_DATETIME_SENT", DisplayName: "Date Sent", Kind: KindDateTime},
	{Name: "TSK_DATETIME_RCVD", DisplayName: "Date Received", Kind: KindDateTime},
}
