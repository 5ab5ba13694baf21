package receiverinfo

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/stream"
)

const envelopeXML = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:eb="http://www.oasis-open.org/committees/ebxml-msg/schema/msg-header-2_0.xsd">
<SOAP-ENV:Header><eb:MessageHeader>
<eb:From><eb:PartyId>OKOYFIHH</eb:PartyId></eb:From>
<eb:Action>ReceiverInfo</eb:Action>
<eb:MessageData><eb:MessageId>20240115-0001</eb:MessageId><eb:Timestamp>2024-01-15T12:30:00</eb:Timestamp></eb:MessageData>
</eb:MessageHeader></SOAP-ENV:Header>
</SOAP-ENV:Envelope>`

const receiverInfoV2 = `<FinvoiceReceiverInfo Version="2.0">
  <MessageDetails><MessageActionCode>add</MessageActionCode></MessageDetails>
  <ReceiverInfoTimeStamp>2024-01-15T12:00:00+02:00</ReceiverInfoTimeStamp>
  <BuyerPartyDetails><BuyerOrganisationName>MATTI MEIKÄLÄINEN</BuyerOrganisationName></BuyerPartyDetails>
  <InvoiceRecipientDetails>
    <InvoiceRecipientAddress>FI2112345600000785</InvoiceRecipientAddress>
    <InvoiceRecipientIntermediatorAddress>OKOYFIHH</InvoiceRecipientIntermediatorAddress>
    <SellerInvoiceIdentifier>123456</SellerInvoiceIdentifier>
  </InvoiceRecipientDetails>
  <BuyerServiceCode>02</BuyerServiceCode>
  <ProposedDueDate>15</ProposedDueDate>
</FinvoiceReceiverInfo>`

func parse(t *testing.T, input string) []*stream.Document {
	t.Helper()
	docs, err := stream.ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	return docs
}

func TestFromDocument(t *testing.T) {
	docs := parse(t, envelopeXML+receiverInfoV2)
	require.Len(t, docs, 1)

	msg, err := FromDocument(docs[0])
	require.NoError(t, err)

	due := "15"
	assert.Equal(t, &Message{
		ID:                     "20240115-0001",
		ActionCode:             ActionAdd,
		Timestamp:              "2024-01-15T12:00:00+02:00",
		RecipientAddress:       "FI2112345600000785",
		RecipientIntermediator: "OKOYFIHH",
		RecipientIdentifier:    "123456",
		RecipientName:          "Matti Meikäläinen",
		ProposedDueDate:        &due,
		ServiceCode:            2,
	}, msg)
}

func TestFromDocument_Version1(t *testing.T) {
	input := strings.NewReplacer(
		"<BuyerServiceCode>02</BuyerServiceCode>", "",
		"<ProposedDueDate>15</ProposedDueDate>", "",
	).Replace(receiverInfoV2)

	msg, err := FromDocument(parse(t, envelopeXML + input)[0])
	require.NoError(t, err)
	assert.Equal(t, 0, msg.ServiceCode)
	assert.Nil(t, msg.ProposedDueDate)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"proposed_due_date":null`)
	assert.Contains(t, string(data), `"service_code":0`)
}

func TestFromDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "no envelope",
			input:   receiverInfoV2,
			wantErr: ErrMissingField,
		},
		{
			name:    "missing seller identifier",
			input:   envelopeXML + strings.Replace(receiverInfoV2, "<SellerInvoiceIdentifier>123456</SellerInvoiceIdentifier>", "", 1),
			wantErr: ErrMissingField,
		},
		{
			name:    "invalid service code",
			input:   envelopeXML + strings.Replace(receiverInfoV2, ">02<", ">X2<", 1),
			wantErr: ErrInvalidServiceCode,
		},
		{
			name:    "other document",
			input:   envelopeXML + `<Other><A>1</A></Other>`,
			wantErr: ErrNotReceiverInfo,
		},
		{
			name:    "finvoice",
			input:   envelopeXML + `<Finvoice/>`,
			wantErr: ErrNotReceiverInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := parse(t, tt.input)
			require.Len(t, docs, 1)
			_, err := FromDocument(docs[0])
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"MATTI MEIKÄLÄINEN": "Matti Meikäläinen",
		"O'NEIL OY":         "O'Neil Oy",
		"virtanen-öhman ab": "Virtanen-Öhman Ab",
		"3RD PARTY":         "3Rd Party",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleCase(in), in)
	}
}

func TestFromDocuments(t *testing.T) {
	docs := parse(t, envelopeXML+receiverInfoV2+`<Finvoice/>`+envelopeXML+receiverInfoV2)

	msgs, err := FromDocuments(docs)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "20240115-0001", msgs[1].ID)

	_, err = FromDocuments(parse(t, receiverInfoV2))
	assert.ErrorIs(t, err, ErrMissingField)
}
