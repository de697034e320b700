/*
Package client provides a convenience API for talking to a Burrow broker.

A Client wraps a TCP connection with the wire codec: Subscribe, Unsubscribe,
and Publish send the corresponding frames, and Receive blocks for the next
Event frame, reassembling it across arbitrary read boundaries.

	c, err := client.Dial("127.0.0.1:9876")
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Subscribe("orders"); err != nil {
		return err
	}
	for {
		msg, err := c.Receive(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", msg.Header.EventName, msg.Payload)
	}

A Client is not safe for concurrent use; run a publisher and a subscriber on
separate clients.
*/
package client
