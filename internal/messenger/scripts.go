package messenger

// OutgoingCountScript counts the outgoing message bubbles of the open conversation.
// Two markers have been used by the client over time; the larger count wins.
const OutgoingCountScript = `(() => Math.max(
  document.querySelectorAll('[data-testid="msg-outgoing"]').length,
  document.querySelectorAll('div.message-out').length
))()`

// ShadowSendScript walks the document including open shadow roots and clicks the first
// send control it finds. Evaluates to true when something was clicked.
const ShadowSendScript = `(() => {
  const selectors = [
    'button[aria-label="Send"]',
    'div[aria-label="Send"][role="button"]',
    'span[data-icon="wds-ic-send-filled"]'
  ];
  const search = (root) => {
    for (const sel of selectors) {
      const hit = root.querySelector(sel);
      if (hit) return hit;
    }
    for (const el of root.querySelectorAll('*')) {
      if (el.shadowRoot) {
        const hit = search(el.shadowRoot);
        if (hit) return hit;
      }
    }
    return null;
  };
  const target = search(document);
  if (!target) return false;
  (target.closest('button,[role="button"]') || target).click();
  return true;
})()`
