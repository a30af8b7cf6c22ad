package rn4871

// Command verbs and response tokens of the RN4871 ASCII protocol. Commands
// go out terminated by a single CR; responses come back as CR LF framed
// lines. See the RN4870/71 user guide for the full set.
const (
	cmdEnterCommandMode = "$$$"
	cmdExitCommandMode  = "---"
	cmdReboot           = "R,1"

	cmdSetSerializedName    = "S-,"
	cmdSetSupportedFeatures = "SR,"
	cmdSetDefaultServices   = "SS,"
	cmdSetAdvPower          = "SGA,"

	cmdDefineServiceUUID = "PS,"
	cmdDefineCharactUUID = "PC,"
	cmdClearAllServices  = "PZ"

	cmdStartDefaultAdv      = "A"
	cmdStartCustomAdv       = "A,"
	cmdStopAdv              = "Y"
	cmdStartPermanentAdv    = "NA,"
	cmdClearPermanentAdv    = "NA,Z"
	cmdClearPermanentBeacon = "NB,Z"
	cmdClearImmediateAdv    = "IA,Z"
	cmdClearImmediateBeacon = "IB,Z"

	cmdGetConnectionStatus  = "GK"
	cmdDisplayFWVersion     = "V"
	cmdStartDefaultScan     = "F"
	cmdListServicesAndChars = "LS"
	cmdWriteLocalCharact    = "SHW,"
	cmdReadLocalCharact     = "SHR,"
)

const (
	respAOK          = "AOK"
	respPrompt       = "CMD> "
	respPromptCR     = "CMD>\r"
	respRebooting    = "Rebooting"
	respScanning     = "Scanning"
	respNoConnection = "none"
	respEndOfListing = "END"
)

// Deadlines and settle delays, in milliseconds of the injected clock.
const (
	defaultCmdTimeout = 200
	charactCmdTimeout = 500
	resetCmdTimeout   = 3000
	delayBeforeCmd    = 100
	cmdModeWindow     = 30
	lsSettleDelay     = 15
)

const (
	// MaxSerializedNameLen is the module's limit for S-; longer names are
	// truncated, not rejected.
	MaxSerializedNameLen = 15

	// MaxAdvPower is the highest advertising power step accepted by SGA.
	MaxAdvPower = 5

	publicUUIDLen  = 4  // 16-bit UUID, bare hex
	privateUUIDLen = 32 // 128-bit UUID, bare hex

	minCharactLen = 0x01
	maxCharactLen = 0x14

	responseBufSize = 128
)

// Characteristic property bits for SetCharacteristicUUID.
const (
	CharPropBroadcast       uint8 = 0x01
	CharPropRead            uint8 = 0x02
	CharPropWriteNoResponse uint8 = 0x04
	CharPropWrite           uint8 = 0x08
	CharPropNotify          uint8 = 0x10
	CharPropIndicate        uint8 = 0x20
)

// Supported-feature bits for SetSupportedFeatures.
const (
	FeatureFlowControl           uint16 = 0x8000
	FeatureNoPrompt              uint16 = 0x4000
	FeatureFastMode              uint16 = 0x2000
	FeatureNoBeaconScan          uint16 = 0x1000
	FeatureNoConnectScan         uint16 = 0x0800
	FeatureNoDuplicateScan       uint16 = 0x0400
	FeaturePassiveScan           uint16 = 0x0200
	FeatureUARTNoACK             uint16 = 0x0100
	FeatureRebootAfterDisconnect uint16 = 0x0080
)

// Default-service bits for SetDefaultServices.
const (
	ServiceDeviceInfo      uint8 = 0x80
	ServiceUARTTransparent uint8 = 0x40
	ServiceBeacon          uint8 = 0x20
	ServiceAirPatch        uint8 = 0x10
)

// Common advertisement AD types for StartPermanentAdvertising.
const (
	AdTypeFlags             uint8 = 0x01
	AdTypeShortLocalName    uint8 = 0x08
	AdTypeCompleteLocalName uint8 = 0x09
	AdTypeTxPower           uint8 = 0x0A
	AdTypeManufacturerData  uint8 = 0xFF
)
