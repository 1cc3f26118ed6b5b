// Package whatsapp implements the parts of the WhatsApp Cloud API the bot
// talks to: inbound webhook payloads, the webhook verification handshake,
// X-Hub-Signature-256 validation, and the Graph API messages endpoint.
//
// # Inbound
//
//	payload, err := whatsapp.ParsePayload(body)
//	for _, msg := range payload.InboundMessages() {
//	    // msg.From, msg.Text
//	}
//
// # Outbound
//
//	client := whatsapp.NewClient(whatsapp.ClientConfig{
//	    PhoneNumberID: "1234567890",
//	    AccessToken:   token,
//	})
//	_, err := client.SendText(ctx, "263771234567", "Welcome to Buyza")
package whatsapp
